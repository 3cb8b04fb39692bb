package stripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeClient is the concrete implementation of Client backed by the
// official stripe-go SDK. Construct it with NewClient.
type stripeClient struct {
	secretKey string
}

// NewClient returns a Client backed by the Stripe SDK.
func NewClient(secretKey string) Client {
	return &stripeClient{secretKey: secretKey}
}

// CreatePaymentIntent creates a Customer for the order's buyer and a
// PaymentIntent charged to it. Stripe emails its own receipt to Email.
func (c *stripeClient) CreatePaymentIntent(ctx context.Context, p CreatePaymentIntentParams) (PaymentIntent, error) {
	stripe.Key = c.secretKey

	custParams := &stripe.CustomerParams{
		Email: stripe.String(p.Email),
		Name:  stripe.String(p.CustomerName),
	}
	custParams.Context = ctx
	if p.IdempotencyKey != "" {
		custParams.SetIdempotencyKey(p.IdempotencyKey + "-customer")
	}
	cust, err := customer.New(custParams)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("stripe: create customer: %w", err)
	}

	meta := make(map[string]string, len(p.Metadata))
	for k, v := range p.Metadata {
		meta[k] = v
	}

	piParams := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(p.AmountCents),
		Currency:     stripe.String(p.Currency),
		Customer:     stripe.String(cust.ID),
		Description:  stripe.String(p.Description),
		ReceiptEmail: stripe.String(p.Email),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: meta,
	}
	piParams.Context = ctx
	if p.IdempotencyKey != "" {
		piParams.SetIdempotencyKey(p.IdempotencyKey)
	}

	pi, err := paymentintent.New(piParams)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	return PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		CustomerID:   cust.ID,
	}, nil
}

// GetClientSecret retrieves the client_secret for an existing PaymentIntent.
func (c *stripeClient) GetClientSecret(ctx context.Context, paymentIntentID string) (string, error) {
	stripe.Key = c.secretKey

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(paymentIntentID, params)
	if err != nil {
		return "", fmt.Errorf("stripe: get payment intent %s: %w", paymentIntentID, err)
	}
	return pi.ClientSecret, nil
}

// VerifyWebhook validates the Stripe-Signature header within the SDK's
// default 300 second tolerance and returns the parsed event.
func (c *stripeClient) VerifyWebhook(payload []byte, sigHeader string, secret string) (Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		return Event{}, fmt.Errorf("stripe: webhook verification failed: %w", err)
	}

	return Event{
		ID:      stripeEvent.ID,
		Type:    string(stripeEvent.Type),
		DataRaw: stripeEvent.Data.Raw,
	}, nil
}
