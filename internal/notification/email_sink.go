package notification

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/spec-kit/watch-market/internal/config"
	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/repository"
)

// Mailer sends one message. gomail.Dialer satisfies it.
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailSink emails the seller about moderation outcomes.
type EmailSink struct {
	users  repository.UserRepository
	mailer Mailer
	from   string
}

// NewEmailSink builds an SMTP sink from configuration.
func NewEmailSink(cfg config.NotificationConfig, users repository.UserRepository) *EmailSink {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	return NewEmailSinkWithMailer(dialer, cfg.EmailFrom, users)
}

// NewEmailSinkWithMailer builds a sink around an arbitrary mailer.
func NewEmailSinkWithMailer(mailer Mailer, from string, users repository.UserRepository) *EmailSink {
	return &EmailSink{users: users, mailer: mailer, from: from}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Deliver(ctx context.Context, n Notification) error {
	seller, err := s.users.GetByID(ctx, n.SellerID)
	if err != nil {
		return fmt.Errorf("lookup seller: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", seller.Email)
	m.SetHeader("Subject", emailSubject(n.Status))
	m.SetBody("text/plain", emailBody(seller.Name, n))
	return s.mailer.DialAndSend(m)
}

func emailSubject(status domain.ListingStatus) string {
	switch status {
	case domain.ListingStatusApproved:
		return "Your watch listing is live"
	case domain.ListingStatusRejected:
		return "Your watch listing needs changes"
	}
	return "Your watch listing was updated"
}

func emailBody(name string, n Notification) string {
	body := fmt.Sprintf("Hello %s,\n\nYour listing %s is now %s.", name, n.ListingID, n.Status)
	if n.Reason != nil && *n.Reason != "" {
		body += fmt.Sprintf("\n\nModerator note: %s", *n.Reason)
	}
	if n.Status == domain.ListingStatusRejected {
		body += "\n\nYou can edit the listing and submit it again."
	}
	return body
}
