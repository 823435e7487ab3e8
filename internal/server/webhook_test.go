package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/desertthunder/roller/internal/models"
	"github.com/desertthunder/roller/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProjects struct {
	byRepo  map[string]*models.Project
	updated []*models.Project
}

func (f *fakeProjects) GetByRepo(fullName string) (*models.Project, error) {
	if p, ok := f.byRepo[strings.ToLower(fullName)]; ok {
		return p, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeProjects) Update(p *models.Project) error {
	f.updated = append(f.updated, p)
	return nil
}

func TestSignPayload(t *testing.T) {
	// Example from GitHub's webhook validation docs.
	got := SignPayload([]byte("It's a Secret to Everybody"), []byte("Hello, World!"))
	assert.Equal(t, "sha256=757107ea0eb2509fc211221cce984b8a37570b6d7586c22c46f4379c8b043e17", got)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"zen":"Keep it logically awesome."}`)
	secret := []byte("s3cret")

	assert.NoError(t, VerifySignature(secret, body, SignPayload(secret, body)))
	assert.ErrorIs(t, VerifySignature(nil, body, "sha256=00"), shared.ErrSignatureMissing)
	assert.ErrorIs(t, VerifySignature(secret, body, ""), shared.ErrSignatureMissing)
	assert.ErrorIs(t, VerifySignature(secret, body, SignPayload([]byte("other"), body)), shared.ErrUnauthorized)
	assert.ErrorIs(t, VerifySignature(secret, body, strings.TrimPrefix(SignPayload(secret, body), "sha256=")), shared.ErrUnauthorized)
}

func TestWebhookHandler(t *testing.T) {
	body := []byte(`{"action":"opened","repository":{"full_name":"acme/roller","html_url":"https://github.com/acme/roller"}}`)

	send := func(h http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/github", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		if signature != "" {
			req.Header.Set(SignatureHeader, signature)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	tc := []struct {
		name      string
		secret    string
		signature string
		want      int
	}{
		{name: "empty secret", secret: "", signature: SignPayload([]byte(""), body), want: http.StatusForbidden},
		{name: "missing header", secret: "s3cret", signature: "", want: http.StatusForbidden},
		{name: "wrong signature", secret: "s3cret", signature: SignPayload([]byte("nope"), body), want: http.StatusUnauthorized},
		{name: "valid signature", secret: "s3cret", signature: SignPayload([]byte("s3cret"), body), want: http.StatusOK},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			h := NewWebhookHandler(tt.secret, &fakeProjects{}, quietLogger())
			rec := send(h, body, tt.signature)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("stores repository url", func(t *testing.T) {
		project := models.NewProject("cat", "Roller")
		project.GitHubRepo = "acme/roller"
		store := &fakeProjects{byRepo: map[string]*models.Project{"acme/roller": project}}

		h := NewWebhookHandler("s3cret", store, quietLogger())
		rec := send(h, body, SignPayload([]byte("s3cret"), body))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, store.updated, 1)
		assert.Equal(t, "https://github.com/acme/roller", project.GitHubURL)
	})

	t.Run("unsigned payload is not applied", func(t *testing.T) {
		project := models.NewProject("cat", "Roller")
		project.GitHubRepo = "acme/roller"
		store := &fakeProjects{byRepo: map[string]*models.Project{"acme/roller": project}}

		h := NewWebhookHandler("s3cret", store, quietLogger())
		rec := send(h, body, SignPayload([]byte("wrong"), body))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, store.updated)
		assert.Empty(t, project.GitHubURL)
	})

	t.Run("unknown repository still succeeds", func(t *testing.T) {
		store := &fakeProjects{}
		h := NewWebhookHandler("s3cret", store, quietLogger())
		rec := send(h, body, SignPayload([]byte("s3cret"), body))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, store.updated)
	})

	t.Run("invalid json still succeeds", func(t *testing.T) {
		payload := []byte("not json")
		h := NewWebhookHandler("s3cret", &fakeProjects{}, quietLogger())
		rec := send(h, payload, SignPayload([]byte("s3cret"), payload))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("form encoded delivery behind method override", func(t *testing.T) {
		project := models.NewProject("cat", "Roller")
		project.GitHubRepo = "acme/roller"
		store := &fakeProjects{byRepo: map[string]*models.Project{"acme/roller": project}}

		r := NewBasicRouter()
		r.Handler(NewWebhookHandler("s3cret", store, quietLogger()))
		h := MethodOverride(r)

		form := []byte(url.Values{"payload": {string(body)}}.Encode())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/github", bytes.NewReader(form))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set(SignatureHeader, SignPayload([]byte("s3cret"), form))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://github.com/acme/roller", project.GitHubURL)
	})

	t.Run("routes", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handler(NewWebhookHandler("s3cret", &fakeProjects{}, quietLogger()))

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/github", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

		rec = send(r, body, SignPayload([]byte("s3cret"), body))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
