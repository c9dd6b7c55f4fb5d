package reactive

import (
	"context"
	"docingest/internal/models"
	cacherepo "docingest/internal/repositories/cache"
	"fmt"
	"log/slog"
)

const pkg = "reactive/"

type DocumentLister interface {
	ListByUser(ctx context.Context, query models.DocumentQuery) ([]*models.Document, error)
}

// Store turns a plain document repository into a live one. Writers call
// NotifyChanged after every mutation; subscribers re-run their query.
type Store struct {
	log       *slog.Logger
	repo      DocumentLister
	pubsub    cacherepo.PubSub
	namespace string
}

func NewStore(log *slog.Logger, repo DocumentLister, pubsub cacherepo.PubSub, namespace string) *Store {
	return &Store{
		log:       log,
		repo:      repo,
		pubsub:    pubsub,
		namespace: namespace,
	}
}

func (s *Store) NotifyChanged(ctx context.Context, doc *models.Document) error {
	op := pkg + "NotifyChanged"

	if err := s.pubsub.Publish(ctx, s.channel(doc.UserID), doc.ID).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Subscribe delivers the current result of query and a fresh result after
// each change notification for the query's user.
func (s *Store) Subscribe(ctx context.Context, query models.DocumentQuery) (*Subscription, error) {
	op := pkg + "Subscribe"

	log := s.log.With(slog.String("op", op), slog.String("user_id", query.UserID))

	// listen before the first read so no change slips between them
	listener, err := s.pubsub.Subscribe(ctx, s.channel(query.UserID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub := Start(ctx, func(ctx context.Context, emit Emit) {
		defer func() {
			if err := listener.Close(); err != nil {
				log.Warn("failed to close listener", slog.String("error", err.Error()))
			}
		}()

		if !s.emitSnapshot(ctx, query, emit) {
			return
		}

		messages := listener.Messages()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					emit(models.Snapshot{Err: models.ErrSubscriptionClosed})
					return
				}

				drain(messages)

				if !s.emitSnapshot(ctx, query, emit) {
					return
				}
			}
		}
	})

	log.Debug("subscription started")

	return sub, nil
}

func (s *Store) emitSnapshot(ctx context.Context, query models.DocumentQuery, emit Emit) bool {
	docs, err := s.repo.ListByUser(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}

		s.log.Error("failed to query documents",
			slog.String("op", pkg+"emitSnapshot"),
			slog.String("error", err.Error()))

		return emit(models.Snapshot{Err: models.ErrInternal})
	}

	return emit(models.Snapshot{Documents: docs})
}

func (s *Store) channel(userID string) string {
	return s.namespace + ":documents:" + userID
}

// drain collapses a burst of notifications into one re-query.
func drain(messages <-chan string) {
	for {
		select {
		case _, ok := <-messages:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
