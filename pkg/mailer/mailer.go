package mailer

import (
	"fmt"
	"net/smtp"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Gateway delivers transactional mail for account onboarding.
type Gateway interface {
	SendInvitation(toEmail, role, department, subjectLine, personalMessage, completionURL string, expiresAt time.Time) error
	SendVerificationStatus(toEmail, fullName string, approved bool) error
}

// Config holds the SMTP gateway settings.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	SenderName string
	FromEmail  string
}

// SMTPGateway sends mail through a plain SMTP relay. Without credentials it
// logs the message instead of sending, which keeps local development working
// against an unconfigured relay.
type SMTPGateway struct {
	config Config
	logger *zap.Logger
}

// NewSMTPGateway constructs an SMTPGateway instance.
func NewSMTPGateway(config Config, logger *zap.Logger) *SMTPGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPGateway{config: config, logger: logger}
}

// SendInvitation delivers an onboarding invitation with the completion link.
func (g *SMTPGateway) SendInvitation(toEmail, role, department, subjectLine, personalMessage, completionURL string, expiresAt time.Time) error {
	if subjectLine == "" {
		subjectLine = "You have been invited to join your college portal"
	}

	var body strings.Builder
	body.WriteString("<html><body>")
	body.WriteString(fmt.Sprintf("<p>You have been invited to join as <strong>%s</strong>", role))
	if department != "" {
		body.WriteString(fmt.Sprintf(" in the %s department", department))
	}
	body.WriteString(".</p>")
	if personalMessage != "" {
		body.WriteString(fmt.Sprintf("<p>%s</p>", personalMessage))
	}
	body.WriteString(fmt.Sprintf(`<p><a href="%s">Complete your registration</a></p>`, completionURL))
	if !expiresAt.IsZero() {
		body.WriteString(fmt.Sprintf("<p>This link expires on %s.</p>", expiresAt.UTC().Format("January 2, 2006 at 15:04 UTC")))
	}
	body.WriteString("</body></html>")

	return g.send(toEmail, subjectLine, body.String())
}

// SendVerificationStatus notifies an alumni account of its review outcome.
func (g *SMTPGateway) SendVerificationStatus(toEmail, fullName string, approved bool) error {
	subject := "Your alumni account has been verified"
	outcome := "verified. You can now log in to the portal."
	if !approved {
		subject = "Your alumni account could not be verified"
		outcome = "rejected. Contact your college administrator for details."
	}

	body := fmt.Sprintf(`<html><body><p>Hello %s,</p><p>Your alumni account has been %s</p></body></html>`, fullName, outcome)
	return g.send(toEmail, subject, body)
}

func (g *SMTPGateway) send(toEmail, subject, htmlBody string) error {
	if g.config.Username == "" || g.config.Password == "" {
		g.logger.Warn("smtp credentials not configured, mail logged instead of sent",
			zap.String("to", toEmail),
			zap.String("subject", subject))
		return nil
	}

	headers := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", g.config.SenderName, g.config.FromEmail),
		"To":           toEmail,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}

	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var message strings.Builder
	for _, key := range keys {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", key, headers[key]))
	}
	message.WriteString("\r\n")
	message.WriteString(htmlBody)

	addr := g.config.Host + ":" + strconv.Itoa(g.config.Port)
	auth := smtp.PlainAuth("", g.config.Username, g.config.Password, g.config.Host)
	if err := smtp.SendMail(addr, auth, g.config.FromEmail, []string{toEmail}, []byte(message.String())); err != nil {
		return fmt.Errorf("send mail to %s: %w", toEmail, err)
	}
	return nil
}
