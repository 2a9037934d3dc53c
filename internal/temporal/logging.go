package temporal

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// TemporalAdapter bridges the Temporal SDK's keyval logger onto zerolog so
// worker and workflow logs share one output with the rest of the process.
type TemporalAdapter struct {
	logger zerolog.Logger
}

func NewTemporalAdapter(logger zerolog.Logger) log.Logger {
	return &TemporalAdapter{
		logger: logger.With().Str("component", "temporal-sdk").Logger(),
	}
}

func (a *TemporalAdapter) withKeyvals(event *zerolog.Event, keyvals ...interface{}) *zerolog.Event {
	// The SDK promises alternating key/value pairs; pad a dangling key so a
	// malformed call still logs instead of dropping fields.
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "(missing)")
	}
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		event = event.Interface(key, keyvals[i+1])
	}
	return event
}

func (a *TemporalAdapter) Debug(msg string, keyvals ...interface{}) {
	a.withKeyvals(a.logger.Debug(), keyvals...).Msg(msg)
}

func (a *TemporalAdapter) Info(msg string, keyvals ...interface{}) {
	a.withKeyvals(a.logger.Info(), keyvals...).Msg(msg)
}

func (a *TemporalAdapter) Warn(msg string, keyvals ...interface{}) {
	a.withKeyvals(a.logger.Warn(), keyvals...).Msg(msg)
}

func (a *TemporalAdapter) Error(msg string, keyvals ...interface{}) {
	a.withKeyvals(a.logger.Error(), keyvals...).Msg(msg)
}
