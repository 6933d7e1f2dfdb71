// Package mailer renders evacuation plans and sends them through an
// HTTP email provider API.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/i474232898/quake-proxy/internal/upstream"
)

// DefaultSubject is used for every evacuation plan email.
const DefaultSubject = "Your earthquake evacuation plan"

// ErrNotConfigured is returned when no provider API key is set.
var ErrNotConfigured = errors.New("mailer: API key not configured")

// UpstreamError means the email provider rejected or failed the send.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("email provider failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Plan is the user's evacuation plan as submitted by the app.
type Plan struct {
	Email    string
	Plan     string
	Contacts []string
	Medical  string
}

var planTemplate = template.Must(template.New("plan").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif">
<h1>Earthquake evacuation plan</h1>
{{if .Plan}}<h2>Plan</h2>
<p>{{.Plan}}</p>
{{else}}<p>No plan details were provided.</p>
{{end}}{{if .Contacts}}<h2>Emergency contacts</h2>
<ul>
{{range .Contacts}}<li>{{.}}</li>
{{end}}</ul>
{{end}}{{if .Medical}}<h2>Medical information</h2>
<p>{{.Medical}}</p>
{{end}}<p>Drop, cover and hold on. Keep this plan somewhere you can reach it offline.</p>
</body>
</html>
`))

// Render returns the HTML body for p. All user input is escaped.
func Render(p Plan) (string, error) {
	var buf bytes.Buffer
	if err := planTemplate.Execute(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Mailer sends rendered plans.
type Mailer struct {
	api      *upstream.Client
	endpoint string
	apiKey   string
	from     string
}

// New creates a Mailer for a Resend-compatible endpoint.
func New(httpClient *http.Client, endpoint, apiKey, from string) *Mailer {
	return &Mailer{
		api:      upstream.New("mailer", httpClient, upstream.NoRetry),
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send renders p and delivers it to p.Email. It returns the provider's
// message id, or a generated one when the provider does not return any.
func (m *Mailer) Send(ctx context.Context, p Plan) (string, error) {
	if m.apiKey == "" {
		return "", ErrNotConfigured
	}

	html, err := Render(p)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(sendRequest{
		From:    m.from,
		To:      []string{strings.TrimSpace(p.Email)},
		Subject: DefaultSubject,
		HTML:    html,
	})
	if err != nil {
		return "", err
	}

	resp, err := m.api.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &UpstreamError{Err: err}
	}

	var out sendResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return "", &UpstreamError{Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	return out.ID, nil
}
