package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultEndpoint = "https://api.resend.com/emails"

// ResendMailer отправляет письма через HTTP API Resend.
type ResendMailer struct {
	client   *http.Client
	endpoint string
	apiKey   string
	from     string
}

// Option настраивает ResendMailer.
type Option func(*ResendMailer)

// WithHTTPClient подменяет HTTP-клиент (используется в тестах).
func WithHTTPClient(c *http.Client) Option {
	return func(m *ResendMailer) { m.client = c }
}

// WithEndpoint подменяет URL API (используется в тестах).
func WithEndpoint(url string) Option {
	return func(m *ResendMailer) { m.endpoint = url }
}

// NewResend создаёт клиент Resend API.
// from должен принадлежать верифицированному в Resend домену, иначе
// провайдер принимает письма только на адрес владельца аккаунта.
func NewResend(apiKey, from string, opts ...Option) *ResendMailer {
	m := &ResendMailer{
		client:   &http.Client{Timeout: 10 * time.Second},
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
		from:     from,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send отправляет письмо. Любой не-2xx ответ считается отказом доставки.
func (m *ResendMailer) Send(ctx context.Context, to, subject, html string) error {
	const op = "mailer.resend.Send"

	body, err := json.Marshal(sendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Тело ответа не включаем в ошибку целиком: достаточно статуса,
		// детали провайдера уходят в лог на стороне вызывающего.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	return nil
}

var _ Mailer = (*ResendMailer)(nil)
