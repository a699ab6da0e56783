package services

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"studycoach-backend/internal/logger"
)

type EmailService struct {
	host        string
	port        string
	user        string
	pass        string
	from        string
	frontendURL string
	devMode     bool
	log         *logger.Logger
}

func NewEmailService(host, port, user, pass, from, frontendURL string, log *logger.Logger) *EmailService {
	devMode := host == "" || user == ""
	if devMode {
		log.Warn("email service running in dev mode, messages are only logged")
	}
	return &EmailService{
		host:        host,
		port:        port,
		user:        user,
		pass:        pass,
		from:        from,
		frontendURL: frontendURL,
		devMode:     devMode,
		log:         log,
	}
}

// SendRevisionReminderEmail tells the user a spaced-repetition revision is due.
func (s *EmailService) SendRevisionReminderEmail(to, name, subject, topic, kind string) error {
	if strings.TrimSpace(name) == "" {
		name = "there"
	}
	when := "2 days"
	if kind == "day7" {
		when = "a week"
	}

	profileURL := fmt.Sprintf("%s/profile", s.frontendURL)
	mailSubject := fmt.Sprintf("Time to revise %s: %s", subject, topic)
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: 'Segoe UI', Arial, sans-serif; margin: 0; padding: 0; background-color: #f8fafc;">
  <div style="max-width: 480px; margin: 40px auto; background: white; border-radius: 12px; box-shadow: 0 4px 24px rgba(0,0,0,0.08); overflow: hidden;">
    <div style="background: linear-gradient(135deg, #6366f1 0%%, #8b5cf6 100%%); padding: 32px; text-align: center;">
      <h1 style="color: white; margin: 0; font-size: 24px; font-weight: 700;">StudyCoach</h1>
    </div>
    <div style="padding: 32px;">
      <h2 style="margin: 0 0 16px; font-size: 20px; color: #1e293b;">Hi %s, a revision is due</h2>
      <p style="color: #64748b; font-size: 14px; line-height: 1.6; margin: 0 0 24px;">
        You finished <strong>%s</strong> (%s) %s ago. A short review now locks it in.
      </p>
      <a href="%s" style="display: inline-block; background: #6366f1; color: white; text-decoration: none; padding: 12px 32px; border-radius: 8px; font-weight: 600; font-size: 14px;">
        Open revision schedule
      </a>
    </div>
  </div>
</body>
</html>`, html.EscapeString(name), html.EscapeString(topic), html.EscapeString(subject), when, profileURL)

	return s.sendHTML(to, mailSubject, body)
}

func (s *EmailService) sendHTML(to, subject, htmlBody string) error {
	if s.devMode {
		s.log.Info("dev email", "to", to, "subject", subject)
		s.log.Debug("dev email body", "body", htmlBody)
		return nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	s.log.Info("email sent", "to", to, "subject", subject)
	return nil
}
