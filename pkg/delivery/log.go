package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// LogSender logs outbound messages instead of delivering them. Used by local
// runs when no provider is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "delivery")}
}

func (s *LogSender) SendEmail(ctx context.Context, msg EmailMessage) (string, error) {
	id := fmt.Sprintf("log-email-%s", uuid.New().String()[:8])

	s.logger.InfoContext(ctx, "Email delivery (log only)",
		"to", msg.To,
		"subject", msg.Subject,
		"provider_id", id)

	return id, nil
}

func (s *LogSender) SendSMS(ctx context.Context, msg SMSMessage) (string, error) {
	id := fmt.Sprintf("log-sms-%s", uuid.New().String()[:8])

	s.logger.InfoContext(ctx, "SMS delivery (log only)",
		"to", msg.To,
		"provider_id", id)

	return id, nil
}

func (s *LogSender) Notify(ctx context.Context, n Notification) error {
	s.logger.InfoContext(ctx, "Notification (log only)",
		"user_id", n.UserID,
		"contact_id", n.ContactID,
		"message", n.Message)

	return nil
}

// CaptureSender records outbound messages for assertions in tests. It can be
// primed to fail to exercise failure paths.
type CaptureSender struct {
	mu sync.Mutex

	Emails        []EmailMessage
	SMS           []SMSMessage
	Notifications []Notification

	FailWith error
}

// NewCaptureSender creates an empty capture sender.
func NewCaptureSender() *CaptureSender {
	return &CaptureSender{}
}

func (s *CaptureSender) SendEmail(ctx context.Context, msg EmailMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return "", s.FailWith
	}

	s.Emails = append(s.Emails, msg)

	return fmt.Sprintf("capture-email-%d", len(s.Emails)), nil
}

func (s *CaptureSender) SendSMS(ctx context.Context, msg SMSMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return "", s.FailWith
	}

	s.SMS = append(s.SMS, msg)

	return fmt.Sprintf("capture-sms-%d", len(s.SMS)), nil
}

func (s *CaptureSender) Notify(ctx context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWith != nil {
		return s.FailWith
	}

	s.Notifications = append(s.Notifications, n)

	return nil
}
