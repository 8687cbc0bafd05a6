package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogDispatcher writes notifications to the log. It stands in for push
// delivery in development.
type LogDispatcher struct {
	logger zerolog.Logger
}

// NewLogDispatcher creates a LogDispatcher
func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, n Notification) error {
	d.logger.Info().
		Str("recipient", n.Recipient.Key()).
		Str("category", n.Category).
		Str("title", n.Title).
		Str("url", n.URL).
		Msg(n.Body)
	return nil
}
