package email

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

// DownloadInstructions is bound into every order confirmation.
const DownloadInstructions = "Your project documents are being prepared. " +
	"You will receive a separate email with secure download links for all of your documents within 24 hours. " +
	"If you have not received it by then, please check your spam folder or contact our support team."

// Defaults applied to document deliveries when the caller leaves a field empty.
const (
	DefaultReviewStagesLabel = "All Review Stages"
	DefaultAccessExpires     = "Never (lifetime access)"
)

const (
	dateLayout = "January 2, 2006"
	timeLayout = "3:04 PM"
)

// ComposerConfig binds the Composer to provider templates and the operator
// inbox.
type ComposerConfig struct {
	ServiceID                 string
	ContactTemplate           string
	OrderConfirmationTemplate string
	DocumentDeliveryTemplate  string
	OperatorEmail             string

	// Now is the clock used for current_date and current_time. Defaults to
	// time.Now.
	Now func() time.Time
}

// Composer shapes the three transactional emails and sends each through a
// Transport exactly once.
type Composer struct {
	transport Transport
	cfg       ComposerConfig
	logger    *slog.Logger
}

// NewComposer returns a Composer sending through t.
func NewComposer(t Transport, cfg ComposerConfig, logger *slog.Logger) *Composer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{transport: t, cfg: cfg, logger: logger}
}

// OperatorEmail is the inbox used for inquiries and as the default support
// address.
func (c *Composer) OperatorEmail() string { return c.cfg.OperatorEmail }

// ─── CONTACT FORM ────────────────────────────────────────────────────────────

// ContactForm is a public inquiry.
type ContactForm struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	ProjectType string `json:"project_type"`
	Budget      string `json:"budget"`
	Message     string `json:"message"`
}

// SendContactForm forwards an inquiry to the operator with reply_to set to the
// sender.
func (c *Composer) SendContactForm(ctx context.Context, f ContactForm) error {
	if err := ValidateAddress("sender", f.Email); err != nil {
		return err
	}

	now := c.cfg.Now()
	vars := Variables{
		VarName:        f.Name,
		VarEmail:       f.Email,
		VarProjectType: f.ProjectType,
		VarBudget:      f.Budget,
		VarMessage:     f.Message,
		VarCurrentDate: now.Format(dateLayout),
		VarCurrentTime: now.Format(timeLayout),
		VarTitle:       "New inquiry from " + f.Name,
		VarToEmail:     c.cfg.OperatorEmail,
		VarReplyTo:     f.Email,
	}

	return c.send(ctx, c.cfg.ContactTemplate, vars)
}

// ─── ORDER CONFIRMATION ──────────────────────────────────────────────────────

// OrderConfirmation carries the order fields bound into the confirmation
// template. Extra pairs are passed through verbatim; the named fields and the
// computed variables win on key collisions.
type OrderConfirmation struct {
	OrderID      string
	CustomerName string
	ProjectTitle string
	Price        string
	SupportEmail string // optional; defaults to the operator address
	Extra        map[string]string
}

// SendOrderConfirmation tells recipient their order was received.
func (c *Composer) SendOrderConfirmation(ctx context.Context, o OrderConfirmation, recipient string) error {
	if err := ValidateAddress("recipient", recipient); err != nil {
		return err
	}

	support := o.SupportEmail
	if support == "" {
		support = c.cfg.OperatorEmail
	}

	vars := make(Variables, len(o.Extra)+10)
	for k, v := range o.Extra {
		vars[k] = v
	}
	vars[VarOrderID] = o.OrderID
	vars[VarCustomerName] = o.CustomerName
	vars[VarProjectTitle] = o.ProjectTitle
	vars[VarPrice] = o.Price
	vars[VarEmail] = recipient
	vars[VarCurrentDate] = c.cfg.Now().Format(dateLayout)
	vars[VarToEmail] = recipient
	vars[VarDownloadInstructions] = DownloadInstructions
	vars[VarSupportEmail] = support
	vars[VarReplyTo] = support

	return c.send(ctx, c.cfg.OrderConfirmationTemplate, vars)
}

// ─── DOCUMENT DELIVERY ───────────────────────────────────────────────────────

// DocumentDelivery is one delivery email. Zero values in the optional fields
// take the documented defaults.
type DocumentDelivery struct {
	CustomerName  string
	CustomerEmail string
	ProjectTitle  string
	OrderID       string
	Documents     []Document

	ReviewStagesLabel string // default DefaultReviewStagesLabel
	DocumentsCount    *int   // default len(Documents)
	CurrentDate       string // default today
	AccessExpires     string // default DefaultAccessExpires
	SupportEmail      string // default operator address
}

// SendDocumentDelivery sends the download links for d.Documents to the
// customer. reply_to is always the operator.
func (c *Composer) SendDocumentDelivery(ctx context.Context, d DocumentDelivery) error {
	if err := ValidateAddress("customer", d.CustomerEmail); err != nil {
		return err
	}

	return c.send(ctx, c.cfg.DocumentDeliveryTemplate, c.deliveryVariables(d))
}

func (c *Composer) deliveryVariables(d DocumentDelivery) Variables {
	count := len(d.Documents)
	if d.DocumentsCount != nil {
		count = *d.DocumentsCount
	}
	stages := d.ReviewStagesLabel
	if stages == "" {
		stages = DefaultReviewStagesLabel
	}
	date := d.CurrentDate
	if date == "" {
		date = c.cfg.Now().Format(dateLayout)
	}
	expires := d.AccessExpires
	if expires == "" {
		expires = DefaultAccessExpires
	}
	support := d.SupportEmail
	if support == "" {
		support = c.cfg.OperatorEmail
	}

	return Variables{
		VarCustomerName:   d.CustomerName,
		VarCustomerEmail:  d.CustomerEmail,
		VarProjectTitle:   d.ProjectTitle,
		VarOrderID:        d.OrderID,
		VarDocumentsHTML:  RenderDocumentsHTML(d.Documents),
		VarDocumentsText:  RenderDocumentsText(d.Documents),
		VarDocumentsCount: strconv.Itoa(count),
		VarReviewStages:   stages,
		VarCurrentDate:    date,
		VarAccessExpires:  expires,
		VarSupportEmail:   support,
		VarToEmail:        d.CustomerEmail,
		VarReplyTo:        c.cfg.OperatorEmail,
	}
}

// ─── SEND ────────────────────────────────────────────────────────────────────

func (c *Composer) send(ctx context.Context, templateID string, vars Variables) error {
	err := c.transport.Send(ctx, Message{
		ServiceID:  c.cfg.ServiceID,
		TemplateID: templateID,
		Variables:  vars,
	})
	if err != nil {
		c.logger.Error("email: send failed",
			"template", templateID,
			"to", vars[VarToEmail],
			"error", err,
		)
		return &DeliveryError{Err: err}
	}

	c.logger.Info("email: sent", "template", templateID, "to", vars[VarToEmail])
	return nil
}
