// Package delivery defines the outbound channel ports the engine hands side
// effects to. Transport is a collaborator concern; implementations here are
// limited to a logging sender for local runs and capture fakes for tests.
package delivery

import "context"

// EmailMessage is an outbound email handed to the provider.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SMSMessage is an outbound text message handed to the provider.
type SMSMessage struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Notification is an internal notification intent; delivery is external.
type Notification struct {
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id"`
	ContactID string `json:"contact_id"`
	Message   string `json:"message"`
}

// EmailSender delivers email and returns the provider message id.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) (string, error)
}

// SMSSender delivers SMS and returns the provider message id.
type SMSSender interface {
	SendSMS(ctx context.Context, msg SMSMessage) (string, error)
}

// Notifier records a notification intent.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
