package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

var templates = map[Template]struct {
	subject string
	body    *template.Template
}{
	TemplateVerifyEmail: {
		subject: "Verify your email address",
		body: template.Must(template.New("verify-email").Parse(`
<p>Hi {{.Username}},</p>
<p>Confirm your email address by following the link below. The link is valid for a limited time.</p>
<p><a href="{{.Link}}">Verify email</a></p>`)),
	},
	TemplateRecoverAccount: {
		subject: "Reset your password",
		body: template.Must(template.New("recover-account").Parse(`
<p>Hi {{.Username}},</p>
<p>A password reset was requested for your account. If this was you, follow the link below.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>If you did not request this, you can ignore this email.</p>`)),
	},
	TemplateReactivateAccount: {
		subject: "Reactivate your account",
		body: template.Must(template.New("reactivate-account").Parse(`
<p>Hi {{.Username}},</p>
<p>Your account is currently deactivated. Follow the link below to reactivate it. The link expires shortly.</p>
<p><a href="{{.Link}}">Reactivate account</a></p>`)),
	},
}

// SMTPMailer sends templated HTML mail over SMTP
type SMTPMailer struct {
	addr     string
	auth     smtp.Auth
	from     string
	fromName string
}

// NewSMTPMailer creates an SMTP mailer. Auth is skipped when username is empty.
func NewSMTPMailer(host, port, username, password, from, fromName string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	return &SMTPMailer{
		addr:     fmt.Sprintf("%s:%s", host, port),
		auth:     auth,
		from:     from,
		fromName: fromName,
	}
}

// Send renders the template and delivers the message
func (m *SMTPMailer) Send(ctx context.Context, tpl Template, recipient string, vars map[string]string) error {
	t, ok := templates[tpl]
	if !ok {
		return fmt.Errorf("unknown mail template %q", tpl)
	}

	var body bytes.Buffer
	if err := t.body.Execute(&body, vars); err != nil {
		return fmt.Errorf("failed to render mail template %q: %w", tpl, err)
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s <%s>", m.fromName, m.from),
		fmt.Sprintf("To: %s", recipient),
		fmt.Sprintf("Subject: %s", t.subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		body.String(),
	}, "\r\n")

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	return nil
}
