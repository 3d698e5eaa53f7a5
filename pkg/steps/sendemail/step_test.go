package sendemail

import (
	"context"
	"errors"
	"testing"

	"github.com/evercrm/cadence/pkg/delivery"
	"github.com/evercrm/cadence/pkg/models"
	"github.com/evercrm/cadence/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendEmail(t *testing.T) {
	sender := delivery.NewCaptureSender()

	handler, err := NewHandler(map[string]any{
		"subject": "Welcome {{.contact.first_name}}",
		"body":    "Your deal is in {{.deal.stage}}.",
	}, sender)
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), protocol.ExecutionContext{
		Contact: &models.Contact{FirstName: "Ada", Email: "ada@example.com"},
		Deal:    &models.Deal{Stage: "qualified"},
	})
	require.NoError(t, err)

	require.Len(t, sender.Emails, 1)
	assert.Equal(t, "ada@example.com", sender.Emails[0].To)
	assert.Equal(t, "Welcome Ada", sender.Emails[0].Subject)
	assert.Equal(t, "Your deal is in qualified.", sender.Emails[0].Body)
	assert.NotEmpty(t, result.Output["provider_message_id"])
}

func TestSendEmailRequiresSubject(t *testing.T) {
	_, err := NewHandler(map[string]any{"body": "hello"}, delivery.NewCaptureSender())
	assert.Error(t, err)
}

func TestSendEmailRequiresAddress(t *testing.T) {
	handler, err := NewHandler(map[string]any{"subject": "hi"}, delivery.NewCaptureSender())
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), protocol.ExecutionContext{
		Contact: &models.Contact{FirstName: "Ada"},
	})
	assert.Error(t, err)
}

func TestSendEmailProviderFailure(t *testing.T) {
	sender := delivery.NewCaptureSender()
	sender.FailWith = errors.New("provider down")

	handler, err := NewHandler(map[string]any{"subject": "hi"}, sender)
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), protocol.ExecutionContext{
		Contact: &models.Contact{Email: "ada@example.com"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
}
