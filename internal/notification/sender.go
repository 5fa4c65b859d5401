package notification

import (
	"context"
	"fmt"
	"time"
)

// Sender delivers a rendered message to a destination address. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, destination, subject, body string) error
}

// Deliver sends msg and gives up after timeout. Expiry is reported as a delivery failure;
// a sender that ignores ctx keeps running in the background until it returns.
func Deliver(ctx context.Context, sender Sender, timeout time.Duration, destination string, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- sender.Send(ctx, destination, msg.Subject, msg.Body)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("delivery to %s timed out: %w", destination, ctx.Err())
	}
}
