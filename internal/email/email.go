// Package email delivers notification mail off the event bus. Delivery
// is best-effort: failures are logged and never surface to the request
// that triggered them.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/evomaxseipio/evotrack-backend/internal"
	"github.com/evomaxseipio/evotrack-backend/internal/core/events"
)

type Service struct {
	cfg      internal.EmailConfig
	security internal.SecurityConfig
	logger   *slog.Logger

	// send is swapped out in tests
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

func NewService(cfg internal.EmailConfig, security internal.SecurityConfig, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		security: security,
		logger:   logger,
		send:     smtp.SendMail,
	}
}

// RegisterHandlers subscribes the notifier to every mail-bearing event.
func (s *Service) RegisterHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeInvitationCreated, s.HandleInvitationCreated)
	bus.Subscribe(events.EventTypeMemberRemoved, s.HandleMemberRemoved)
	bus.Subscribe(events.EventTypeUserActivation, s.HandleUserActivation)
}

func (s *Service) HandleInvitationCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.InvitationCreatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	link := s.security.InvitationLinkBaseURL + "?token=" + e.Token
	subject := fmt.Sprintf("You have been invited to join %s", e.OrganizationName)
	body := fmt.Sprintf(
		"%s invited you to join %s as %s.\r\n\r\nAccept the invitation: %s\r\n\r\nThis invitation expires in 7 days.\r\n",
		e.InviterName, e.OrganizationName, e.Role, link)

	return s.deliver(e.Email, subject, body)
}

func (s *Service) HandleMemberRemoved(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.MemberRemovedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	subject := fmt.Sprintf("You have been removed from %s", e.OrganizationName)
	body := fmt.Sprintf(
		"Your membership in %s has ended. If you believe this is a mistake, contact an administrator of the organization.\r\n",
		e.OrganizationName)

	return s.deliver(e.Email, subject, body)
}

func (s *Service) HandleUserActivation(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.UserActivationEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	link := s.security.ActivationLinkBaseURL + "?token=" + e.Token
	subject := "Activate your account"
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nAn account has been created for you. Set your password to get started: %s\r\n\r\nThe link expires in 72 hours.\r\n",
		e.FirstName, link)

	return s.deliver(e.Email, subject, body)
}

// deliver sends one message, or just logs it when SMTP is not
// configured.
func (s *Service) deliver(to, subject, body string) error {
	if s.cfg.SMTPHost == "" {
		s.logger.Info("email delivery skipped (smtp not configured)",
			"to", to,
			"subject", subject)
		return nil
	}

	from := s.cfg.FromAddress
	headers := []string{
		"From: " + s.fromHeader(),
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
	}
	msg := []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	if err := s.send(addr, auth, from, []string{to}, msg); err != nil {
		s.logger.Error("email delivery failed", "to", to, "subject", subject, "error", err)
		return err
	}

	s.logger.Info("email delivered", "to", to, "subject", subject)
	return nil
}

func (s *Service) fromHeader() string {
	if s.cfg.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromAddress)
	}
	return s.cfg.FromAddress
}
