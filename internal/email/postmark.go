package email

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mrz1836/postmark"
)

// templatedSender is the slice of *postmark.Client the transport uses.
type templatedSender interface {
	SendTemplatedEmail(ctx context.Context, email postmark.TemplatedEmail) (postmark.EmailResponse, error)
}

// PostmarkTransport sends templated email through Postmark.
type PostmarkTransport struct {
	client templatedSender
	from   string
}

// NewPostmarkTransport returns a Transport bound to a Postmark server token.
// The account token is optional and only used for account-level API calls.
func NewPostmarkTransport(serverToken, accountToken, fromAddr, fromName string) (*PostmarkTransport, error) {
	if serverToken == "" {
		return nil, fmt.Errorf("%w: postmark server token is required", ErrInvalidConfig)
	}
	if !IsValidAddress(fromAddr) {
		return nil, fmt.Errorf("%w: sender %q is not a valid email address", ErrInvalidConfig, fromAddr)
	}
	from := fromAddr
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", fromName, fromAddr)
	}
	return &PostmarkTransport{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
	}, nil
}

// Send renders msg.TemplateID with msg.Variables. Numeric template ids are
// sent as TemplateID, anything else as TemplateAlias. The service id becomes
// the message tag.
func (t *PostmarkTransport) Send(ctx context.Context, msg Message) error {
	model := make(map[string]interface{}, len(msg.Variables))
	for k, v := range msg.Variables {
		model[k] = v
	}

	email := postmark.TemplatedEmail{
		TemplateModel: model,
		From:          t.from,
		To:            msg.Variables[VarToEmail],
		ReplyTo:       msg.Variables[VarReplyTo],
		Tag:           msg.ServiceID,
	}
	if id, err := strconv.ParseInt(msg.TemplateID, 10, 64); err == nil {
		email.TemplateID = id
	} else {
		email.TemplateAlias = msg.TemplateID
	}

	resp, err := t.client.SendTemplatedEmail(ctx, email)
	if err != nil {
		return &TransportError{Provider: ProviderPostmark, Message: err.Error(), Err: err}
	}
	if resp.ErrorCode > 0 {
		return &TransportError{
			Provider: ProviderPostmark,
			Message:  fmt.Sprintf("%d - %s", resp.ErrorCode, resp.Message),
		}
	}
	return nil
}
