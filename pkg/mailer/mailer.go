package mailer

import "context"

// Template names the outbound notification kinds
type Template string

const (
	TemplateVerifyEmail       Template = "verify-email"
	TemplateRecoverAccount    Template = "recover-account"
	TemplateReactivateAccount Template = "reactivate-account"
)

// Mailer delivers a templated notification. Delivery is best-effort from the
// caller's point of view: the account state has already committed by the time
// a mail is attempted, so senders log failures instead of propagating them.
type Mailer interface {
	Send(ctx context.Context, tpl Template, recipient string, vars map[string]string) error
}
