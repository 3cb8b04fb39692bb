package email

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Supported values for EMAIL_PROVIDER.
const (
	ProviderPostmark = "postmark"
	ProviderResend   = "resend"
	ProviderDev      = "dev"
)

// Settings is the email section of the process environment. It is parsed once
// at startup for wiring and again on every readiness check.
type Settings struct {
	Provider             string `env:"EMAIL_PROVIDER" envDefault:"postmark"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	ResendAPIKey         string `env:"RESEND_API_KEY"`
	SenderEmail          string `env:"EMAIL_SENDER"`
	SenderName           string `env:"EMAIL_SENDER_NAME" envDefault:"Project Delivery"`
	OperatorEmail        string `env:"EMAIL_OPERATOR"`
	ServiceID            string `env:"EMAIL_SERVICE_ID" envDefault:"project-delivery"`

	ContactTemplate           string `env:"EMAIL_TEMPLATE_CONTACT" envDefault:"contact"`
	OrderConfirmationTemplate string `env:"EMAIL_TEMPLATE_ORDER_CONFIRMATION" envDefault:"order-confirmation"`
	DocumentDeliveryTemplate  string `env:"EMAIL_TEMPLATE_DOCUMENT_DELIVERY" envDefault:"document-delivery"`

	DevDir string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}

// APIKey returns the credential for the selected provider. The dev provider
// needs none.
func (s Settings) APIKey() string {
	switch s.Provider {
	case ProviderPostmark:
		return s.PostmarkServerToken
	case ProviderResend:
		return s.ResendAPIKey
	}
	return ""
}

// ComposerConfig derives the composer's template bindings from s.
func (s Settings) ComposerConfig() ComposerConfig {
	return ComposerConfig{
		ServiceID:                 s.ServiceID,
		ContactTemplate:           s.ContactTemplate,
		OrderConfirmationTemplate: s.OrderConfirmationTemplate,
		DocumentDeliveryTemplate:  s.DocumentDeliveryTemplate,
		OperatorEmail:             s.OperatorEmail,
	}
}

// Readiness is the result of one configuration check.
type Readiness struct {
	Configured  bool     `json:"configured"`
	APIKey      bool     `json:"apiKey"`
	SenderEmail string   `json:"senderEmail"`
	Issues      []string `json:"issues"`
}

// ReadinessChecker reports whether email can be sent right now.
type ReadinessChecker interface {
	Check() Readiness
}

// ReadinessFunc adapts a plain function to ReadinessChecker.
type ReadinessFunc func() Readiness

func (f ReadinessFunc) Check() Readiness { return f() }

// EnvChecker re-reads the environment on every Check so a fixed variable is
// picked up without a restart.
type EnvChecker struct{}

func (EnvChecker) Check() Readiness {
	s, err := env.ParseAs[Settings]()
	if err != nil {
		return Readiness{Issues: []string{fmt.Sprintf("email settings could not be parsed: %v", err)}}
	}
	return Evaluate(s)
}

// Evaluate derives readiness from s. Issues are listed in a fixed order.
func Evaluate(s Settings) Readiness {
	r := Readiness{
		SenderEmail: s.SenderEmail,
		Issues:      []string{},
	}

	switch s.Provider {
	case ProviderPostmark, ProviderResend:
		r.APIKey = s.APIKey() != ""
		if !r.APIKey {
			r.Issues = append(r.Issues, apiKeyVar(s.Provider)+" is not set")
		}
	case ProviderDev:
		r.APIKey = true
	default:
		r.Issues = append(r.Issues, fmt.Sprintf("EMAIL_PROVIDER %q is not one of postmark, resend or dev", s.Provider))
	}

	switch {
	case s.SenderEmail == "":
		r.Issues = append(r.Issues, "EMAIL_SENDER is not set")
	case !IsValidAddress(s.SenderEmail):
		r.Issues = append(r.Issues, "EMAIL_SENDER is not a valid email address")
	}

	switch {
	case s.OperatorEmail == "":
		r.Issues = append(r.Issues, "EMAIL_OPERATOR is not set")
	case !IsValidAddress(s.OperatorEmail):
		r.Issues = append(r.Issues, "EMAIL_OPERATOR is not a valid email address")
	}

	templates := []struct{ name, value string }{
		{"EMAIL_TEMPLATE_CONTACT", s.ContactTemplate},
		{"EMAIL_TEMPLATE_ORDER_CONFIRMATION", s.OrderConfirmationTemplate},
		{"EMAIL_TEMPLATE_DOCUMENT_DELIVERY", s.DocumentDeliveryTemplate},
	}
	for _, t := range templates {
		if strings.TrimSpace(t.value) == "" {
			r.Issues = append(r.Issues, t.name+" is not set")
		}
	}

	r.Configured = len(r.Issues) == 0
	return r
}

func apiKeyVar(provider string) string {
	if provider == ProviderResend {
		return "RESEND_API_KEY"
	}
	return "POSTMARK_SERVER_TOKEN"
}

// SetupInstructions renders the operator-facing configuration guide for r.
func SetupInstructions(r Readiness) string {
	var b strings.Builder

	if r.Configured {
		fmt.Fprintf(&b, "Email is configured. Messages are sent from %s.\n", r.SenderEmail)
		return b.String()
	}

	b.WriteString("Email is not configured yet.\n\n")
	b.WriteString("Current issues:\n")
	for _, issue := range r.Issues {
		fmt.Fprintf(&b, "  - %s\n", issue)
	}

	b.WriteString(`
Setup:
  1. Create a server in your Postmark account and copy its server API token.
  2. Set POSTMARK_SERVER_TOKEN (or EMAIL_PROVIDER=resend with RESEND_API_KEY).
  3. Verify the sender address or domain with the provider and set EMAIL_SENDER.
  4. Set EMAIL_OPERATOR to the inbox that receives inquiries and replies.
  5. Create the contact, order confirmation and document delivery templates
     and set EMAIL_TEMPLATE_CONTACT, EMAIL_TEMPLATE_ORDER_CONFIRMATION and
     EMAIL_TEMPLATE_DOCUMENT_DELIVERY to their ids or aliases.
  6. Restart the service so the transport picks up the new credentials.
`)
	return b.String()
}
