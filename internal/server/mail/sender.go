// Package mail sends account lifecycle emails over SMTP. With no host
// configured the sender logs the message instead, which keeps local
// development working without a mail server.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/copypaster/server/internal/logging"
)

type Sender struct {
	host     string
	port     string
	username string
	password string
	from     string
	logger   logging.Logger
}

func NewSender(host, port, username, password, from string, logger logging.Logger) *Sender {
	return &Sender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		logger:   logger.With("module", "mail"),
	}
}

const verificationTemplate = `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
    <div style="max-width: 500px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px;">
        <h1 style="text-align: center;">CopyPaster</h1>
        <p>Hi {{.Name}},</p>
        <p>Thanks for signing up for CopyPaster. Please verify your email address to get started.</p>
        <p style="text-align: center;">
            <a href="{{.Link}}" style="display: inline-block; padding: 12px 28px; background-color: #09090b; color: #fafafa; text-decoration: none; border-radius: 6px; font-weight: bold;">Verify Email</a>
        </p>
        <p>If you didn't create an account, you can safely ignore this email.</p>
    </div>
</body>
</html>
`

const passwordResetTemplate = `
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
    <div style="max-width: 500px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px;">
        <h1 style="text-align: center;">CopyPaster</h1>
        <h2 style="text-align: center;">Password Reset Request</h2>
        <p>We received a request to reset the password for your CopyPaster account. Click the button below to choose a new one.</p>
        <p style="text-align: center;">
            <a href="{{.Link}}" style="display: inline-block; padding: 12px 28px; background-color: #09090b; color: #fafafa; text-decoration: none; border-radius: 6px; font-weight: bold;">Reset Password</a>
        </p>
        <p>If you didn't request a password reset, you can safely ignore this email. The link expires in one hour.</p>
    </div>
</body>
</html>
`

func (s *Sender) SendVerificationEmail(ctx context.Context, to, name, link string) error {
	body, err := renderTemplate("verification", verificationTemplate, map[string]string{"Name": name, "Link": link})
	if err != nil {
		return err
	}
	return s.send(ctx, to, "Verify your CopyPaster email", body)
}

func (s *Sender) SendPasswordResetEmail(ctx context.Context, to, link string) error {
	body, err := renderTemplate("password_reset", passwordResetTemplate, map[string]string{"Link": link})
	if err != nil {
		return err
	}
	return s.send(ctx, to, "Reset your CopyPaster password", body)
}

func renderTemplate(name, text string, data map[string]string) (string, error) {
	t, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return body.String(), nil
}

func (s *Sender) send(ctx context.Context, to, subject, body string) error {
	if s.host == "" {
		s.logger.Info(ctx, "no SMTP host configured, logging email instead",
			"to", to, "subject", subject)
		return nil
	}

	message := fmt.Sprintf("From: %s\r\n", s.from) +
		fmt.Sprintf("To: %s\r\n", to) +
		fmt.Sprintf("Subject: %s\r\n", subject) +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" + body

	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	return smtp.SendMail(addr, auth, s.from, []string{to}, []byte(message))
}
