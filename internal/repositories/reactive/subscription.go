package reactive

import (
	"context"
	"docingest/internal/models"
	"sync"
)

// Emit hands a snapshot to the subscriber. It returns false once the
// subscription is closed and the producer must stop.
type Emit func(models.Snapshot) bool

type Subscription struct {
	snapshots chan models.Snapshot
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Start runs produce in its own goroutine. The snapshot channel is closed
// when produce returns.
func Start(ctx context.Context, produce func(ctx context.Context, emit Emit)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)

	s := &Subscription{
		snapshots: make(chan models.Snapshot),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	emit := func(snap models.Snapshot) bool {
		select {
		case s.snapshots <- snap:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(s.done)
		defer close(s.snapshots)
		defer cancel()

		produce(ctx, emit)
	}()

	return s
}

func (s *Subscription) Snapshots() <-chan models.Snapshot {
	return s.snapshots
}

// Close stops the producer and waits until its resources are released.
func (s *Subscription) Close() error {
	s.closeOnce.Do(s.cancel)
	<-s.done

	return nil
}
