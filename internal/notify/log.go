package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// logNotifier records events in the application log.
type logNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier returns a notifier writing events at info level.
func NewLogNotifier(logger zerolog.Logger) Notifier {
	return &logNotifier{logger: logger.With().Str("component", "events").Logger()}
}

func (n *logNotifier) Notify(ctx context.Context, event Event) error {
	n.logger.Info().
		Str("event", string(event.Type)).
		Str("code", event.Code).
		Str("user_id", event.UserID).
		Str("voucher_id", event.VoucherID).
		Str("discount", event.Discount).
		Time("occurred_at", event.OccurredAt).
		Msg("voucher event")
	return nil
}
