package mailer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

func TestRenderEscapesInput(t *testing.T) {
	html, err := Render(Plan{
		Plan:     "Meet at <b>the park</b>",
		Contacts: []string{"Mom 555-0100", "<script>alert(1)</script>"},
		Medical:  "Insulin",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(html, "<script>") || strings.Contains(html, "<b>the park</b>") {
		t.Fatalf("user input was not escaped:\n%s", html)
	}
	for _, want := range []string{"Meet at &lt;b&gt;the park&lt;/b&gt;", "Mom 555-0100", "Insulin"} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in output", want)
		}
	}
}

func TestRenderEmptyPlan(t *testing.T) {
	html, err := Render(Plan{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(html, "No plan details were provided.") {
		t.Fatalf("expected placeholder text, got:\n%s", html)
	}
	if strings.Contains(html, "Emergency contacts") {
		t.Fatalf("contacts section should be omitted")
	}
}

func TestSend(t *testing.T) {
	var got sendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &got)
		_, _ = w.Write([]byte(`{"id":"msg_123"}`))
	}))
	defer srv.Close()

	m := New(srv.Client(), srv.URL, "re_key", "plans@example.com")
	id, err := m.Send(context.Background(), Plan{Email: "user@example.com", Plan: "Go uphill"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "msg_123" {
		t.Errorf("id = %q", id)
	}
	if auth != "Bearer re_key" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.From != "plans@example.com" || len(got.To) != 1 || got.To[0] != "user@example.com" {
		t.Errorf("unexpected envelope: %+v", got)
	}
	if got.Subject != DefaultSubject || !strings.Contains(got.HTML, "Go uphill") {
		t.Errorf("unexpected content: %+v", got)
	}
}

func TestSendGeneratesMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := New(srv.Client(), srv.URL, "k", "from@example.com")
	id, err := m.Send(context.Background(), Plan{Email: "user@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected generated uuid, got %q", id)
	}
}

func TestSendErrors(t *testing.T) {
	m := New(http.DefaultClient, "http://127.0.0.1:1", "", "from@example.com")
	if _, err := m.Send(context.Background(), Plan{Email: "user@example.com"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	m = New(srv.Client(), srv.URL, "k", "from@example.com")
	_, err := m.Send(context.Background(), Plan{Email: "user@example.com"})
	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}
