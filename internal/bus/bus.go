package bus

import (
	"context"
	"fmt"
)

// Handler processes one message. A returned error is reported back to the publisher.
type Handler func(ctx context.Context, msg Message) error

// Publisher is the producer side of the bus, injected into services.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Bus adds subscription. Subscriptions are made by the composition root at startup.
type Bus interface {
	Publisher
	Subscribe(kind Kind, h Handler)
}

// On subscribes a handler typed to a concrete message, e.g.
//
//	bus.On(b, userService.HandleConsentChanged)
func On[M Message](b Bus, fn func(context.Context, M) error) {
	var zero M
	b.Subscribe(zero.Kind(), func(ctx context.Context, msg Message) error {
		m, ok := msg.(M)
		if !ok {
			return fmt.Errorf("bus: %s handler received %T", zero.Kind(), msg)
		}
		return fn(ctx, m)
	})
}
