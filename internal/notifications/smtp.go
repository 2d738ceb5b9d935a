package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

const smtpTimeout = 15 * time.Second

type mailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPSender delivers email notifications through a mail relay
type SMTPSender struct {
	client mailClient
	from   string
	now    func() time.Time
}

// NewSMTPSender creates a sender for host:port. With a username set the
// relay must offer STARTTLS before PLAIN login; without one, TLS is used
// when the relay offers it.
func NewSMTPSender(host string, port int, username, password, from string) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTimeout(smtpTimeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if username != "" {
		opts = append(opts,
			mail.WithTLSPolicy(mail.TLSMandatory),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(password),
		)
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPSender{client: client, from: from, now: time.Now}, nil
}

func (s *SMTPSender) Channel() string {
	return ChannelEmail
}

func (s *SMTPSender) Send(ctx context.Context, to Recipient, event Event) (Result, error) {
	if to.Email == "" {
		return Result{}, ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	msg, err := newMessage(s.from, to.Email, event.Title, event.Body, s.now())
	if err != nil {
		return Result{}, err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return Result{}, fmt.Errorf("send mail: %w", err)
	}
	return Result{Delivered: 1}, nil
}

func newMessage(from, to, subject, body string, at time.Time) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetDateWithValue(at)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}
