package mailer

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"gopkg.in/gomail.v2"
)

// DefaultSubject is used when Config.Subject is empty.
const DefaultSubject = "Verification Code"

// Config holds SMTP connection parameters and message settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From defaults to Username when empty.
	From string
	// Subject defaults to DefaultSubject when empty.
	Subject string
}

// SMTP sends the verification-code email. Safe for concurrent use; gomail
// dials per send.
type SMTP struct {
	dialer  *gomail.Dialer
	from    string
	subject string
}

// New creates an SMTP deliverer from cfg.
func New(cfg Config) *SMTP {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	return &SMTP{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    from,
		subject: subject,
	}
}

type messageParams struct {
	Code    string
	Minutes int
}

var textBody = texttemplate.Must(texttemplate.New("text").Parse(`Your verification code:

{{.Code}}

This code is valid for {{.Minutes}} minutes.

If you did not request this code, please ignore this email.
`))

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Parse(`<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <h2>Verification Code</h2>
      <p>Your verification code is:</p>
      <div style="background: #f5f5f5; padding: 20px; border-radius: 8px; text-align: center; margin: 20px 0;">
        <h1 style="font-size: 32px; letter-spacing: 3px; margin: 0;">{{.Code}}</h1>
      </div>
      <p>This code is valid for <strong>{{.Minutes}} minutes</strong>.</p>
      <p style="color: #666; font-size: 12px; margin-top: 30px;">
        If you did not request this code, please ignore this email.
      </p>
    </div>
  </body>
</html>
`))

// Deliver sends the code to email as a plain+HTML multipart message. The
// context is honored up front; gomail itself does not support cancellation
// mid-dial.
func (m *SMTP) Deliver(ctx context.Context, email, code string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := messageParams{
		Code:    code,
		Minutes: int(ttl.Minutes()),
	}

	var text, html bytes.Buffer
	if err := textBody.Execute(&text, params); err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}
	if err := htmlBody.Execute(&html, params); err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", m.subject)
	msg.SetBody("text/plain", text.String())
	msg.AddAlternative("text/html", html.String())

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}
