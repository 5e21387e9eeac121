package email

import (
	"bytes"
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/Dan9191/finsight/internal/config"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Section is one titled block of a report
type Section struct {
	Title string
	Lines []string
	// HTML is an already sanitized fragment, e.g. AI advice
	HTML string
}

// sendFunc delivers a prepared message
type sendFunc func(addr string, a smtp.Auth, e *email.Email) error

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   sendFunc
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(addr string, a smtp.Auth, e *email.Email) error {
			return e.Send(addr, a)
		},
	}
}

// Enabled reports whether SMTP is configured
func (s *Sender) Enabled() bool {
	return s.cfg.MailEnabled()
}

// SendReport sends a results summary to a user
func (s *Sender) SendReport(to, username string, sections []Section) error {
	if !s.Enabled() {
		return fmt.Errorf("email is not configured")
	}
	if to == "" {
		return fmt.Errorf("recipient address is empty")
	}
	if len(sections) == 0 {
		return fmt.Errorf("report is empty")
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Your FinSight report, %s", time.Now().Format("2006-01-02"))
	e.Text, e.HTML = renderReport(username, sections)

	// Send email
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := s.send(addr, auth, e); err != nil {
		s.logger.Errorf("Failed to send report to %s: %v", to, err)
		return fmt.Errorf("failed to send report: %w", err)
	}

	s.logger.Infof("Report sent to %s: %s", to, e.Subject)
	return nil
}

func renderReport(username string, sections []Section) (text, htmlBody []byte) {
	if username == "" {
		username = "there"
	}

	var tb, hb bytes.Buffer
	fmt.Fprintf(&tb, "Hi %s,\n\nHere is the latest summary of your finances.\n", username)
	fmt.Fprintf(&hb, "<p>Hi %s,</p><p>Here is the latest summary of your finances.</p>", html.EscapeString(username))
	for _, sec := range sections {
		fmt.Fprintf(&tb, "\n%s\n%s\n", sec.Title, strings.Repeat("-", len(sec.Title)))
		fmt.Fprintf(&hb, "<h3>%s</h3><ul>", html.EscapeString(sec.Title))
		for _, l := range sec.Lines {
			fmt.Fprintf(&tb, "  %s\n", l)
			fmt.Fprintf(&hb, "<li>%s</li>", html.EscapeString(l))
		}
		hb.WriteString("</ul>")
		if sec.HTML != "" {
			hb.WriteString(sec.HTML)
		}
	}
	tb.WriteString("\nBest regards,\nFinSight")
	hb.WriteString("<p>Best regards,<br>FinSight</p>")
	return tb.Bytes(), hb.Bytes()
}
