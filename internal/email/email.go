// Package email builds and delivers the service's transactional email.
//
// A Transport performs exactly one templated provider call per message. The
// Composer turns contact inquiries, order confirmations and document
// deliveries into flat template variables and hands them to a Transport.
package email

import "context"

// Variables is the flat binding a provider template is rendered with. Nested
// data (the document list) is pre-rendered into strings before it lands here.
type Variables map[string]string

// Message is a single templated send.
type Message struct {
	ServiceID  string // provider-side stream or tag the message is grouped under
	TemplateID string // numeric id or alias, depending on the provider
	Variables  Variables
}

// Transport delivers one Message. Implementations bind their credentials at
// construction, make a single provider call, and never retry. Every failure is
// returned as a *TransportError.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Template variable keys shared by the provider templates.
const (
	VarName                 = "name"
	VarEmail                = "email"
	VarProjectType          = "project_type"
	VarBudget               = "budget"
	VarMessage              = "message"
	VarCurrentDate          = "current_date"
	VarCurrentTime          = "current_time"
	VarTitle                = "title"
	VarToEmail              = "to_email"
	VarReplyTo              = "reply_to"
	VarDownloadInstructions = "download_instructions"
	VarSupportEmail         = "support_email"
	VarOrderID              = "order_id"
	VarCustomerName         = "customer_name"
	VarCustomerEmail        = "customer_email"
	VarProjectTitle         = "project_title"
	VarPrice                = "price"
	VarDocumentsHTML        = "documents_html"
	VarDocumentsText        = "documents_text"
	VarDocumentsCount       = "documents_count"
	VarReviewStages         = "review_stages"
	VarAccessExpires        = "access_expires"
)
