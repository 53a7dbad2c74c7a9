package messaging

import (
	"context"
	"errors"

	"pitchday/contexts/live-contest/voting-session/ports"
)

// Fanout publishes every event to each target and reports all failures.
type Fanout struct {
	Targets []ports.EventPublisher
}

func (f Fanout) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	var errs []error
	for _, target := range f.Targets {
		if target == nil {
			continue
		}
		if err := target.Publish(ctx, topic, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
