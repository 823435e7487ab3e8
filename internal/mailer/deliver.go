package mailer

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/roller/internal/shared"
	"github.com/google/uuid"
)

// Deliverer sends a rendered message.
type Deliverer interface {
	Deliver(ctx context.Context, msg *Message) error
}

// NewDeliverer returns an [SMTPDeliverer] when an SMTP host is configured and a
// [LogDeliverer] otherwise.
func NewDeliverer(cfg shared.MailConfig, logger *log.Logger) Deliverer {
	if cfg.SMTPHost == "" {
		return NewLogDeliverer(logger)
	}
	return NewSMTPDeliverer(cfg)
}

// sendFunc matches [smtp.SendMail].
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPDeliverer sends messages through an SMTP relay.
type SMTPDeliverer struct {
	addr string
	auth smtp.Auth
	send sendFunc
}

func NewSMTPDeliverer(cfg shared.MailConfig) *SMTPDeliverer {
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.SMTPHost)
	}

	return &SMTPDeliverer{
		addr: cfg.SMTPHost + ":" + strconv.Itoa(port),
		auth: auth,
		send: smtp.SendMail,
	}
}

func (d *SMTPDeliverer) Deliver(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := Encode(msg)
	if err != nil {
		return err
	}

	if err := d.send(d.addr, d.auth, msg.From, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("%w: smtp %s: %w", shared.ErrServiceUnavailable, d.addr, err)
	}
	return nil
}

// LogDeliverer writes messages to the log instead of sending them.
type LogDeliverer struct {
	logger *log.Logger
}

func NewLogDeliverer(logger *log.Logger) *LogDeliverer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LogDeliverer{logger: logger.WithPrefix("mail")}
}

func (d *LogDeliverer) Deliver(_ context.Context, msg *Message) error {
	d.logger.Info("delivering mail", "to", msg.To, "subject", msg.Subject)
	d.logger.Debug(msg.Text)
	return nil
}

// Encode renders msg as a multipart/alternative MIME message.
func Encode(msg *Message) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"8bit"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create mime part: %w", err)
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("failed to write mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close mime message: %w", err)
	}

	var out bytes.Buffer
	headers := [][2]string{
		{"From", msg.From},
		{"To", msg.To},
		{"Subject", mime.QEncoding.Encode("utf-8", msg.Subject)},
		{"Date", time.Now().UTC().Format(time.RFC1123Z)},
		{"Message-ID", "<" + uuid.NewString() + "@roller>"},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + mw.Boundary()},
	}
	for _, h := range headers {
		fmt.Fprintf(&out, "%s: %s\r\n", h[0], h[1])
	}
	out.WriteString("\r\n")
	out.Write(body.Bytes())
	return out.Bytes(), nil
}
