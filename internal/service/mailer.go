package service

import (
	"context"

	"go.uber.org/zap"
)

// Mailer delivers onboarding mail to new gate staff.
type Mailer interface {
	SendPIN(ctx context.Context, toEmail, toName, pin string) error
}

// LogMailer is the fallback delivery used when outbound mail is
// disabled. The PIN lands in the structured log so operators can relay
// it manually in development setups.
type LogMailer struct {
	logger    *zap.Logger
	fromName  string
	fromEmail string
}

// NewLogMailer constructs a LogMailer carrying the configured sender
// identity so log lines read like the mail that would have gone out.
func NewLogMailer(logger *zap.Logger, fromName, fromEmail string) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger, fromName: fromName, fromEmail: fromEmail}
}

// SendPIN logs the onboarding PIN instead of mailing it.
func (m *LogMailer) SendPIN(ctx context.Context, toEmail, toName, pin string) error {
	m.logger.Info("onboarding pin issued",
		zap.String("from_name", m.fromName),
		zap.String("from_email", m.fromEmail),
		zap.String("email", toEmail),
		zap.String("name", toName),
		zap.String("pin", pin))
	return nil
}
