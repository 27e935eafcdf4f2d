package email

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"deepfake-inspector/internal/models"
	"deepfake-inspector/shared/config"
)

//go:embed templates/digest.html
var templateFS embed.FS

var digestTemplate = template.Must(template.New("digest.html").Funcs(template.FuncMap{
	"trusted": models.Trusted,
}).ParseFS(templateFS, "templates/digest.html"))

// SendFunc delivers a prepared message; smtp.SendMail in production.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Sender struct {
	config *config.EmailConfig
	send   SendFunc
	now    func() time.Time
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config: cfg,
		send:   smtp.SendMail,
		now:    time.Now,
	}
}

// Digest is the data rendered into the report email.
type Digest struct {
	Date      time.Time
	Reports   []*models.Report
	Threshold int
}

// SendReports emails a digest of reports. Nothing is sent for an empty list.
func (s *Sender) SendReports(reports []*models.Report) error {
	if len(reports) == 0 {
		return nil
	}
	if !s.config.Enabled {
		return errors.New("email is disabled")
	}

	digest := &Digest{Date: s.now(), Reports: reports, Threshold: models.TrustThreshold}
	body, err := renderDigest(digest)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return s.SendHTML(subjectFor(reports, digest.Date), body)
}

func subjectFor(reports []*models.Report, date time.Time) string {
	suspect := 0
	for _, r := range reports {
		if (r.Visual != nil && !models.Trusted(r.Visual.Score)) || (r.Audio != nil && !models.Trusted(r.Audio.Score)) || !r.Complete() {
			suspect++
		}
	}
	return fmt.Sprintf("Deepfake Inspector - %d videos analyzed, %d need review (%s)",
		len(reports), suspect, date.Format("Jan 2, 2006"))
}

// SendHTML sends an email with custom HTML content
func (s *Sender) SendHTML(subject, htmlBody string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)

	to := []string{s.config.ToEmail}
	msg := []byte(fmt.Sprintf(`To: %s
From: %s
Subject: %s
MIME-Version: 1.0
Content-Type: text/html; charset=UTF-8

%s`, s.config.ToEmail, s.config.FromEmail, subject, htmlBody))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	return s.send(addr, auth, s.config.FromEmail, to, msg)
}

func renderDigest(digest *Digest) (string, error) {
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, digest); err != nil {
		return "", err
	}
	return buf.String(), nil
}
