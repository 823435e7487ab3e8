package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/shared"
)

const (
	SignatureHeader = "X-Hub-Signature-256"
	signaturePrefix = "sha256="

	// GitHub caps webhook payloads at 25 MB.
	maxWebhookBodySize = 25 << 20
)

// ProjectStore is the subset of the project repository the webhook writes to.
type ProjectStore interface {
	GetByRepo(fullName string) (*models.Project, error)
	Update(project *models.Project) error
}

// WebhookHandler accepts GitHub deliveries signed with a shared secret.
//
// A verified delivery that names a known repository stores the repository's html_url on its
// project. Nothing else in the payload is acted on.
type WebhookHandler struct {
	secret   []byte
	projects ProjectStore
	logger   *log.Logger
}

// NewWebhookHandler creates a handler. An empty secret makes every delivery fail with 403.
func NewWebhookHandler(secret string, projects ProjectStore, logger *log.Logger) *WebhookHandler {
	return &WebhookHandler{secret: []byte(secret), projects: projects, logger: logger.WithPrefix("webhook")}
}

// Routes returns the HTTP routes this handler serves.
func (h *WebhookHandler) Routes() []string {
	return []string{"POST /api/v1/github"}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		h.logger.Warn("failed to read webhook body", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	switch err := VerifySignature(h.secret, body, r.Header.Get(SignatureHeader)); {
	case errors.Is(err, shared.ErrSignatureMissing):
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	case err != nil:
		h.logger.Warn("webhook signature mismatch", "remote", r.RemoteAddr, "event", r.Header.Get("X-GitHub-Event"))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	h.linkRepository(r.Header.Get("Content-Type"), body)
	w.WriteHeader(http.StatusOK)
}

type webhookPayload struct {
	Repository struct {
		FullName string `json:"full_name"`
		HTMLURL  string `json:"html_url"`
	} `json:"repository"`
}

// payloadJSON returns the JSON document of a delivery. GitHub's form content type sends it in
// the payload field.
func payloadJSON(contentType string, body []byte) []byte {
	if !strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		return body
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil
	}
	return []byte(values.Get("payload"))
}

// linkRepository records the repository URL on the matching project. Failures are logged only.
func (h *WebhookHandler) linkRepository(contentType string, body []byte) {
	if h.projects == nil {
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(payloadJSON(contentType, body), &payload); err != nil {
		h.logger.Debug("ignoring unparseable webhook payload", "error", err)
		return
	}
	repo := payload.Repository
	if repo.FullName == "" || repo.HTMLURL == "" {
		return
	}

	project, err := h.projects.GetByRepo(repo.FullName)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("failed to look up project", "repo", repo.FullName, "error", err)
		}
		return
	}
	if project.GitHubURL == repo.HTMLURL {
		return
	}

	project.GitHubURL = repo.HTMLURL
	if err := h.projects.Update(project); err != nil {
		h.logger.Error("failed to store repository url", "project", project.ID(), "error", err)
		return
	}
	h.logger.Info("linked repository", "project", project.ID(), "url", repo.HTMLURL)
}

// SignPayload returns the X-Hub-Signature-256 header value for body.
func SignPayload(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against the HMAC of body in constant time.
//
// It returns [shared.ErrSignatureMissing] when either the secret or the header is empty and
// [shared.ErrUnauthorized] on mismatch.
func VerifySignature(secret, body []byte, header string) error {
	if len(secret) == 0 || header == "" {
		return shared.ErrSignatureMissing
	}
	if !hmac.Equal([]byte(header), []byte(SignPayload(secret, body))) {
		return fmt.Errorf("%w: signature mismatch", shared.ErrUnauthorized)
	}
	return nil
}
