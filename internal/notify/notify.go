/*
Package notify delivers alert emails over SMTP or the Resend HTTP API.
Senders report a per-message outcome; delivery failures never abort the
surrounding run.
*/
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	gomail "gopkg.in/mail.v2"
)

const sendTimeout = 10 * time.Second

const resendEndpoint = "https://api.resend.com/emails"

// Sender delivers a single plain-text email, optionally with an attachment.
// A false return with a nil error never occurs; dry-run senders return true
// without contacting any provider.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, body, attachmentPath string) (bool, error)
}

// SMTPConfig holds SMTP delivery configuration.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
}

// SMTPSender delivers via SMTP with STARTTLS.
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, toEmail, subject, body, attachmentPath string) (bool, error) {
	message := gomail.NewMessage()
	message.SetHeader("From", s.cfg.FromEmail)
	message.SetHeader("To", toEmail)
	message.SetHeader("Subject", subject)
	message.SetBody("text/plain", body)

	if attachmentPath != "" {
		if _, err := os.Stat(attachmentPath); err == nil {
			message.Attach(attachmentPath)
		}
	}

	dialer := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	dialer.Timeout = sendTimeout

	if err := dialer.DialAndSend(message); err != nil {
		return false, fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}
	return true, nil
}

// ResendSender delivers via the Resend HTTP API.
type ResendSender struct {
	apiKey     string
	fromEmail  string
	httpClient *http.Client
}

func NewResendSender(apiKey, fromEmail string) *ResendSender {
	return &ResendSender{
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type resendAttachment struct {
	Content  []byte `json:"content"`
	Filename string `json:"filename"`
}

type resendPayload struct {
	From        string             `json:"from"`
	To          []string           `json:"to"`
	Subject     string             `json:"subject"`
	Text        string             `json:"text"`
	Attachments []resendAttachment `json:"attachments,omitempty"`
}

func (s *ResendSender) Send(ctx context.Context, toEmail, subject, body, attachmentPath string) (bool, error) {
	payload := resendPayload{
		From:    s.fromEmail,
		To:      []string{toEmail},
		Subject: subject,
		Text:    body,
	}

	if attachmentPath != "" {
		if data, err := os.ReadFile(attachmentPath); err == nil {
			payload.Attachments = append(payload.Attachments, resendAttachment{
				Content:  data,
				Filename: filepath.Base(attachmentPath),
			})
		}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode resend payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendEndpoint, bytes.NewReader(encoded))
	if err != nil {
		return false, fmt.Errorf("failed to build resend request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("resend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return false, fmt.Errorf("resend error %d: %s", resp.StatusCode, string(detail))
	}
	return true, nil
}

// DryRunSender reports success without contacting any provider. Used so
// dry-run polls still mark filings as seen.
type DryRunSender struct{}

func (DryRunSender) Send(ctx context.Context, toEmail, subject, body, attachmentPath string) (bool, error) {
	return true, nil
}
