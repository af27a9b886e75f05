package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer logs outbound mail instead of delivering it. Used in development
// and test environments where no SMTP relay is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a logging mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message that would have been sent
func (m *LogMailer) Send(ctx context.Context, tpl Template, recipient string, vars map[string]string) error {
	m.logger.Info("mail notification",
		zap.String("template", string(tpl)),
		zap.String("recipient", recipient),
		zap.Any("vars", vars),
	)
	return nil
}
