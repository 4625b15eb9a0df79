package broadcast

import "context"

// Publisher pushes realtime events to connected subscribers. Delivery is
// at-most-once and best-effort: callers must not couple request success
// to a publish succeeding.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

// Nop is a Publisher that drops every event. Used when no realtime
// backend is configured and in tests.
type Nop struct{}

// Publish discards the payload.
func (Nop) Publish(ctx context.Context, channel string, payload interface{}) error {
	return nil
}
