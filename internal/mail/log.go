package mail

import (
	"context"
	"log/slog"

	"github.com/rezonia/invoice-mailer/internal/model"
)

// LogSender records messages in the log instead of sending them. It is used
// when no relay is configured so local runs complete the whole pipeline.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string, att Attachment) error {
	if err := ctx.Err(); err != nil {
		return model.NewDeliveryError(to, "send interrupted", err)
	}
	if to == "" {
		return model.NewDeliveryError(to, "no recipient", nil)
	}

	s.logger.InfoContext(ctx, "invoice mail (not sent)",
		"to", to,
		"subject", subject,
		"attachment", att.Name,
		"bytes", len(att.Data),
	)
	return nil
}
