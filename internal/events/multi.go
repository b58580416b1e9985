package events

import (
	"context"
	"errors"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
)

// Multi publishes every event to each publisher in order and joins their
// errors. A failing publisher does not stop the others.
type Multi []domain.EventPublisher

func (m Multi) Publish(ctx context.Context, event domain.RequestEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
