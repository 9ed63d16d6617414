// internal/services/notification_service.go
package services

import (
	"fmt"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/ludora/ludora-backend/internal/config"
)

// NotificationService sends transactional email. Callers fire it from a
// goroutine; delivery failures are logged, never returned to the request
// path.
type NotificationService struct {
	cfg         config.EmailConfig
	frontendURL string
}

func NewNotificationService(cfg config.EmailConfig, frontendURL string) *NotificationService {
	return &NotificationService{
		cfg:         cfg,
		frontendURL: frontendURL,
	}
}

func (s *NotificationService) SendWelcomeEmail(to, name string) {
	subject := "Welcome to Ludora"
	body := fmt.Sprintf("Hi %s,\n\nYour Ludora account is ready. Explore games, courses and classroom content at %s.\n\nThe Ludora Team", name, s.frontendURL)
	s.send(to, subject, body)
}

func (s *NotificationService) SendPasswordResetEmail(to, token string) {
	subject := "Reset your Ludora password"
	body := fmt.Sprintf("A password reset was requested for your account.\n\nReset link: %s/reset-password?token=%s\n\nIf you did not request this, ignore this email.", s.frontendURL, token)
	s.send(to, subject, body)
}

func (s *NotificationService) SendEmailVerification(to, token string) {
	subject := "Verify your Ludora email"
	body := fmt.Sprintf("Confirm your email address to finish setting up your account.\n\nVerification link: %s/verify-email?token=%s", s.frontendURL, token)
	s.send(to, subject, body)
}

func (s *NotificationService) SendConsentGrantedEmail(to, studentName string) {
	subject := "Parent consent confirmed"
	body := fmt.Sprintf("Parent consent for %s has been recorded. The account now has full access to Ludora content.", studentName)
	s.send(to, subject, body)
}

func (s *NotificationService) send(to, subject, body string) {
	if s.cfg.SMTPUsername == "" {
		// No SMTP configured (dev/test); log instead of sending.
		logrus.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("Email suppressed, SMTP not configured")
		return
	}

	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.cfg.FromName, s.cfg.FromEmail, to, subject, body)

	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)

	if err := smtp.SendMail(addr, auth, s.cfg.FromEmail, []string{to}, []byte(msg)); err != nil {
		logrus.WithError(err).WithField("to", to).Error("Failed to send email")
	}
}
