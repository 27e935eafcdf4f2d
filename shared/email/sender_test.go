package email

import (
	"net/smtp"
	"strings"
	"testing"
	"time"

	"deepfake-inspector/internal/models"
	"deepfake-inspector/shared/config"
)

type capturedMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestSender(captured *[]capturedMail) *Sender {
	s := NewSender(&config.EmailConfig{
		Enabled:    true,
		SMTPServer: "smtp.example.com",
		SMTPPort:   587,
		FromEmail:  "inspector@example.com",
		ToEmail:    "analyst@example.com",
	})
	s.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*captured = append(*captured, capturedMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return s
}

func TestSendReports(t *testing.T) {
	var sent []capturedMail
	s := newTestSender(&sent)

	reports := []*models.Report{
		{
			Key:    "dQw4w9WgXcQ",
			Source: "https://youtu.be/dQw4w9WgXcQ",
			Visual: &models.VisualResult{Score: 92, Verdict: models.VerdictReal, Anomalies: []models.Anomaly{}},
			Audio: &models.AudioResult{
				Score:            40,
				Verdict:          models.VerdictSynthetic,
				AcousticAnalysis: "metallic cadence",
				DetectedIssues:   []string{"flat pitch"},
			},
		},
		{
			Key:         "aaaaaaaaaaa",
			Source:      "https://youtu.be/aaaaaaaaaaa",
			Metadata:    &models.VideoMetadata{Title: "Press <conference>", ChannelTitle: "News"},
			Visual:      &models.VisualResult{Score: 95, Verdict: models.VerdictReal},
			AudioError:  "audio model unavailable",
			VisualError: "",
		},
	}

	if err := s.SendReports(reports); err != nil {
		t.Fatalf("SendReports() error = %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}

	mail := sent[0]
	if mail.addr != "smtp.example.com:587" {
		t.Errorf("addr = %s", mail.addr)
	}
	for _, want := range []string{
		"Subject: Deepfake Inspector - 2 videos analyzed, 2 need review (Mar 14, 2026)",
		"No visual anomalies detected.",
		"metallic cadence",
		"<li>flat pitch</li>",
		`<span class="trusted">92/100</span>`,
		`<span class="suspect">40/100</span>`,
		"Audio analysis failed: audio model unavailable",
		"Press &lt;conference&gt;",
	} {
		if !strings.Contains(mail.msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestSendReportsEmptyAndDisabled(t *testing.T) {
	var sent []capturedMail
	s := newTestSender(&sent)

	if err := s.SendReports(nil); err != nil {
		t.Errorf("SendReports(nil) error = %v", err)
	}

	s.config.Enabled = false
	if err := s.SendReports([]*models.Report{{Key: "dQw4w9WgXcQ"}}); err == nil {
		t.Error("SendReports() should fail when email is disabled")
	}
	if len(sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(sent))
	}
}
