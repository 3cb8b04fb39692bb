package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"
)

const resendEndpoint = "https://api.resend.com/emails"

// ResendTemplate is a locally rendered template. Resend has no server-side
// templates, so the three bodies ship with the binary.
type ResendTemplate struct {
	Subject func(Variables) string
	Body    *template.Template
}

// ResendTransport is the Transport backed by the Resend API.
type ResendTransport struct {
	apiKey     string
	from       string // "Name <addr>"
	endpoint   string
	templates  map[string]ResendTemplate
	httpClient *http.Client
}

// NewResendTransport returns a Transport that renders msg.TemplateID from
// templates and posts the HTML to Resend.
func NewResendTransport(apiKey, fromAddr, fromName string, templates map[string]ResendTemplate) (*ResendTransport, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: resend api key is required", ErrInvalidConfig)
	}
	if !IsValidAddress(fromAddr) {
		return nil, fmt.Errorf("%w: sender %q is not a valid email address", ErrInvalidConfig, fromAddr)
	}
	from := fromAddr
	if fromName != "" {
		from = fmt.Sprintf("%s <%s>", fromName, fromAddr)
	}
	return &ResendTransport{
		apiKey:    apiKey,
		from:      from,
		endpoint:  resendEndpoint,
		templates: templates,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// ─── RESEND API SHAPES ────────────────────────────────────────────────────────

type resendRequest struct {
	From    string      `json:"from"`
	To      []string    `json:"to"`
	ReplyTo string      `json:"reply_to,omitempty"`
	Subject string      `json:"subject"`
	HTML    string      `json:"html"`
	Text    string      `json:"text,omitempty"`
	Tags    []resendTag `json:"tags,omitempty"`
}

type resendTag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ─── TRANSPORT IMPLEMENTATION ────────────────────────────────────────────────

func (c *ResendTransport) Send(ctx context.Context, msg Message) error {
	tmpl, ok := c.templates[msg.TemplateID]
	if !ok {
		return c.fail(fmt.Sprintf("unknown template %q", msg.TemplateID), nil)
	}

	data := make(map[string]any, len(msg.Variables))
	for k, v := range msg.Variables {
		data[k] = v
	}
	// Already escaped by RenderDocumentsHTML.
	if v, ok := msg.Variables[VarDocumentsHTML]; ok {
		data[VarDocumentsHTML] = template.HTML(v)
	}

	var body bytes.Buffer
	if err := tmpl.Body.Execute(&body, data); err != nil {
		return c.fail("render template: "+err.Error(), err)
	}

	reqBody := resendRequest{
		From:    c.from,
		To:      []string{msg.Variables[VarToEmail]},
		ReplyTo: msg.Variables[VarReplyTo],
		Subject: tmpl.Subject(msg.Variables),
		HTML:    body.String(),
		Text:    msg.Variables[VarDocumentsText],
	}
	if msg.ServiceID != "" {
		reqBody.Tags = []resendTag{{Name: "service", Value: msg.ServiceID}}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return c.fail("marshal request: "+err.Error(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return c.fail("build request: "+err.Error(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail("http request: "+err.Error(), err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return c.fail("read response: "+err.Error(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var parsed resendResponse
		if json.Unmarshal(respBytes, &parsed) == nil && parsed.Message != "" {
			return c.fail(fmt.Sprintf("%s: %s", parsed.Name, parsed.Message), nil)
		}
		return c.fail(fmt.Sprintf("unexpected status %d: %.200s", resp.StatusCode, string(respBytes)), nil)
	}
	return nil
}

func (c *ResendTransport) fail(message string, err error) error {
	return &TransportError{Provider: ProviderResend, Message: message, Err: err}
}

// ─── HTML TEMPLATES ───────────────────────────────────────────────────────────

// DefaultResendTemplates binds the built-in bodies to the configured template
// ids.
func DefaultResendTemplates(cfg ComposerConfig) map[string]ResendTemplate {
	return map[string]ResendTemplate{
		cfg.ContactTemplate: {
			Subject: func(v Variables) string { return v[VarTitle] },
			Body:    contactTemplate,
		},
		cfg.OrderConfirmationTemplate: {
			Subject: func(v Variables) string {
				return fmt.Sprintf("Order confirmed: %s", v[VarProjectTitle])
			},
			Body: orderConfirmationTemplate,
		},
		cfg.DocumentDeliveryTemplate: {
			Subject: func(v Variables) string {
				return fmt.Sprintf("Your documents for %s", v[VarProjectTitle])
			},
			Body: documentDeliveryTemplate,
		},
	}
}

const layoutOpen = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">`

const layoutClose = `
</body>
</html>`

var contactTemplate = template.Must(template.New("contact").Parse(layoutOpen + `
  <h2 style="margin-bottom: 8px;">{{.title}}</h2>
  <p><strong>Name:</strong> {{.name}}<br>
  <strong>Email:</strong> {{.email}}<br>
  <strong>Project type:</strong> {{.project_type}}<br>
  <strong>Budget:</strong> {{.budget}}</p>
  <p style="white-space: pre-wrap;">{{.message}}</p>
  <p style="color: #9ca3af; font-size: 12px;">Received {{.current_date}} at {{.current_time}}</p>` + layoutClose))

var orderConfirmationTemplate = template.Must(template.New("order-confirmation").Parse(layoutOpen + `
  <h2 style="margin-bottom: 8px;">Order Confirmed</h2>
  <p>Hello {{.customer_name}},</p>
  <p>Thank you for your order of <strong>{{.project_title}}</strong>
  ({{.price}}) on {{.current_date}}. Your order reference is {{.order_id}}.</p>
  <p>{{.download_instructions}}</p>
  <p style="color: #6b7280; font-size: 14px;">
    Questions? Contact {{.support_email}}.
  </p>` + layoutClose))

var documentDeliveryTemplate = template.Must(template.New("document-delivery").Parse(layoutOpen + `
  <h2 style="margin-bottom: 8px;">Your Documents Are Ready</h2>
  <p>Hello {{.customer_name}},</p>
  <p>Here are the {{.documents_count}} documents for <strong>{{.project_title}}</strong>
  ({{.review_stages}}), order {{.order_id}}.</p>
  {{.documents_html}}
  <p style="color: #6b7280; font-size: 14px;">
    Sent {{.current_date}}. Access expires: {{.access_expires}}.<br>
    Questions? Contact {{.support_email}}.
  </p>` + layoutClose))
