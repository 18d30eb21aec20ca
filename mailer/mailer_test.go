package mailer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	m := New(Config{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "noreply@example.com",
		Password: "hunter2",
	})

	if m.from != "noreply@example.com" {
		t.Fatalf("from = %q, want the username", m.from)
	}
	if m.subject != DefaultSubject {
		t.Fatalf("subject = %q, want %q", m.subject, DefaultSubject)
	}

	m = New(Config{From: "auth@example.com", Subject: "Sign in"})
	if m.from != "auth@example.com" || m.subject != "Sign in" {
		t.Fatalf("explicit from/subject not honored: %q %q", m.from, m.subject)
	}
}

func TestDeliverHonorsCanceledContext(t *testing.T) {
	m := New(Config{Host: "smtp.example.com", Port: 587})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Deliver(ctx, "a@x.com", "river stone", 10*time.Minute); err == nil {
		t.Fatal("Deliver with canceled context succeeded")
	}
}

func TestBodiesRenderCodeAndMinutes(t *testing.T) {
	params := messageParams{Code: "river stone", Minutes: 10}

	var text, html bytes.Buffer
	if err := textBody.Execute(&text, params); err != nil {
		t.Fatalf("text template: %v", err)
	}
	if err := htmlBody.Execute(&html, params); err != nil {
		t.Fatalf("html template: %v", err)
	}

	for _, body := range []string{text.String(), html.String()} {
		if !strings.Contains(body, "river stone") {
			t.Fatalf("body omits the code:\n%s", body)
		}
		if !strings.Contains(body, "10 minutes") {
			t.Fatalf("body omits the validity window:\n%s", body)
		}
	}
}
