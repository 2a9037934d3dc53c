package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/relwatch/relwatch/internal/config"
	"github.com/relwatch/relwatch/internal/models"
)

// Mailer delivers a single new-release notification. Implementations render
// the subject and body; templating beyond plain text is out of scope.
type Mailer interface {
	SendRelease(recipientEmail string, artist models.Artist, release models.ReleaseGroup, unsubscribeURL string) error
}

// SMTPMailer sends notification emails through an SMTP server.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPMailer(cfg config.EmailConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return nil, fmt.Errorf("smtp_host is required")
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("email from address is required")
	}

	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}, nil
}

func (m *SMTPMailer) SendRelease(recipientEmail string, artist models.Artist, release models.ReleaseGroup, unsubscribeURL string) error {
	subject := fmt.Sprintf("New release: %s - %s", artist.Name, release.Name)

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n",
		m.from, recipientEmail, subject)

	body := strings.Builder{}
	body.WriteString("Hello,\n\n")
	body.WriteString(fmt.Sprintf("%s released a new %s:\n\n", artist.Name, strings.ToLower(release.Type)))
	body.WriteString(fmt.Sprintf("    %s", release.Name))
	if date := release.DateStr(); date != "" {
		body.WriteString(fmt.Sprintf(" (%s)", date))
	}
	body.WriteString("\n\n")
	body.WriteString(fmt.Sprintf("https://musicbrainz.org/release-group/%s\n\n", release.MBID))
	body.WriteString("You receive this email because you follow this artist.\n")
	if unsubscribeURL != "" {
		body.WriteString(fmt.Sprintf("To stop receiving notifications, visit:\n%s\n", unsubscribeURL))
	}

	message := []byte(headers + body.String())
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if strings.TrimSpace(m.username) != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{recipientEmail}, message)
}
