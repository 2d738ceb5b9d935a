package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type fakeMailClient struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeMailClient) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.sent = append(f.sent, messages...)
	return f.err
}

func newTestSMTPSender(t *testing.T, sendErr error) (*SMTPSender, *fakeMailClient) {
	t.Helper()
	sender, err := NewSMTPSender("mail.example.com", 587, "mailer", "secret", "noreply@example.com")
	require.NoError(t, err)

	client := &fakeMailClient{err: sendErr}
	sender.client = client
	sender.now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }
	return sender, client
}

func TestSMTPSender_Send(t *testing.T) {
	sender, client := newTestSMTPSender(t, nil)
	event := NewEvent(uuid.New(), ChannelEmail, "Monthly report", "line one\nline two")

	result, err := sender.Send(context.Background(), Recipient{Email: "user@example.com"}, event)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Delivered)
	require.Len(t, client.sent, 1)

	msg := client.sent[0]
	from, err := msg.GetSender(false)
	require.NoError(t, err)
	assert.Equal(t, "noreply@example.com", from)

	rcpts, err := msg.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"user@example.com"}, rcpts)

	assert.Equal(t, []string{"Monthly report"}, msg.GetGenHeader(mail.HeaderSubject))
	assert.Equal(t, []string{"Thu, 02 Jan 2025 03:04:05 +0000"}, msg.GetGenHeader(mail.HeaderDate))

	parts := msg.GetParts()
	require.Len(t, parts, 1)
	assert.Equal(t, mail.TypeTextPlain, parts[0].GetContentType())
	body, err := parts[0].GetContent()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", string(body))
}

func TestSMTPSender_Errors(t *testing.T) {
	sender, _ := newTestSMTPSender(t, errors.New("connection refused"))
	event := NewEvent(uuid.New(), ChannelEmail, "t", "b")

	_, err := sender.Send(context.Background(), Recipient{}, event)
	assert.ErrorIs(t, err, ErrNoRecipient)

	_, err = sender.Send(context.Background(), Recipient{Email: "not an address"}, event)
	assert.ErrorContains(t, err, "recipient address")

	_, err = sender.Send(context.Background(), Recipient{Email: "user@example.com"}, event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sender.Send(ctx, Recipient{Email: "user@example.com"}, event)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSMTPSender_RejectsBadRelay(t *testing.T) {
	_, err := NewSMTPSender("", 587, "", "", "noreply@example.com")
	assert.ErrorIs(t, err, mail.ErrNoHostname)

	_, err = NewSMTPSender("mail.example.com", 0, "", "", "noreply@example.com")
	assert.ErrorIs(t, err, mail.ErrInvalidPort)
}
