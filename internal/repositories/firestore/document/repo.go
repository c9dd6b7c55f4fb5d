package firestoredocrepo

import (
	"context"
	"docingest/internal/models"
	"docingest/internal/repositories/reactive"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const pkg = "firestoreDocRepo/"

type record struct {
	Name        string         `firestore:"name"`
	Type        string         `firestore:"type"`
	Size        int64          `firestore:"size"`
	UserID      string         `firestore:"userId"`
	URL         string         `firestore:"url"`
	StoragePath string         `firestore:"storagePath"`
	Status      string         `firestore:"status"`
	UploadedAt  int64          `firestore:"uploadedAt"`
	ChunkCount  *int64         `firestore:"chunkCount,omitempty"`
	Metadata    map[string]any `firestore:"metadata"`
	Tags        []string       `firestore:"tags"`
}

// repository keeps one Firestore document per uploaded file, keyed by document id.
type repository struct {
	log        *slog.Logger
	client     *firestore.Client
	collection string
}

func NewClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%s: projectID must be provided to create a firestore client", pkg+"NewClient")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create firestore client: %w", pkg+"NewClient", err)
	}

	return client, nil
}

func NewRepository(log *slog.Logger, client *firestore.Client, collection string) *repository {
	return &repository{
		log:        log,
		client:     client,
		collection: collection,
	}
}

func (r *repository) CreateDocument(ctx context.Context, doc *models.Document) error {
	op := pkg + "CreateDocument"

	_, err := r.client.Collection(r.collection).Doc(doc.ID).Create(ctx, toRecord(doc))
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("%s: %w", op, &models.UniqueConstraintError{Constraint: "id", Err: err})
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *repository) DocumentByID(ctx context.Context, id string) (*models.Document, error) {
	op := pkg + "DocumentByID"

	snap, err := r.client.Collection(r.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%s: %w", op, models.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	doc, err := fromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return doc, nil
}

func (r *repository) ListByUser(ctx context.Context, query models.DocumentQuery) ([]*models.Document, error) {
	op := pkg + "ListByUser"

	snaps, err := r.query(query).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	docs, err := fromSnapshots(snaps)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return docs, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id string, upd models.StatusUpdate) (*models.Document, error) {
	op := pkg + "UpdateStatus"

	_, err := r.client.Collection(r.collection).Doc(id).Update(ctx, statusUpdates(upd))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%s: %w", op, models.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r.DocumentByID(ctx, id)
}

// NotifyChanged is a no-op: Firestore pushes query snapshots on its own.
func (r *repository) NotifyChanged(ctx context.Context, doc *models.Document) error {
	return nil
}

func (r *repository) Subscribe(ctx context.Context, query models.DocumentQuery) (*reactive.Subscription, error) {
	op := pkg + "Subscribe"

	log := r.log.With(slog.String("op", op), slog.String("user_id", query.UserID))

	return reactive.Start(ctx, func(ctx context.Context, emit reactive.Emit) {
		it := r.query(query).Snapshots(ctx)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled {
					return
				}

				log.Error("snapshot listener failed", slog.String("error", err.Error()))
				emit(models.Snapshot{Err: models.ErrInternal})
				return
			}

			snaps, err := snap.Documents.GetAll()
			if err != nil {
				log.Error("failed to read snapshot documents", slog.String("error", err.Error()))
				if !emit(models.Snapshot{Err: models.ErrInternal}) {
					return
				}
				continue
			}

			docs, err := fromSnapshots(snaps)
			if err != nil {
				log.Error("failed to decode snapshot documents", slog.String("error", err.Error()))
				if !emit(models.Snapshot{Err: models.ErrInternal}) {
					return
				}
				continue
			}

			if !emit(models.Snapshot{Documents: docs}) {
				return
			}
		}
	}), nil
}

func (r *repository) query(query models.DocumentQuery) firestore.Query {
	q := r.client.Collection(r.collection).
		Where("userId", "==", query.UserID).
		OrderBy("uploadedAt", firestore.Desc)

	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	return q
}

func statusUpdates(upd models.StatusUpdate) []firestore.Update {
	updates := []firestore.Update{
		{Path: "status", Value: string(upd.Status)},
	}

	if upd.ChunkCount != nil {
		updates = append(updates, firestore.Update{Path: "chunkCount", Value: int64(*upd.ChunkCount)})
	}

	for k, v := range upd.Metadata {
		updates = append(updates, firestore.Update{FieldPath: firestore.FieldPath{"metadata", k}, Value: v})
	}

	return updates
}

func toRecord(doc *models.Document) record {
	rec := record{
		Name:        doc.Name,
		Type:        doc.Type,
		Size:        doc.Size,
		UserID:      doc.UserID,
		URL:         doc.URL,
		StoragePath: doc.StoragePath,
		Status:      string(doc.Status),
		UploadedAt:  doc.UploadedAt,
		Metadata:    doc.Metadata,
		Tags:        doc.Tags,
	}

	if doc.ChunkCount != nil {
		n := int64(*doc.ChunkCount)
		rec.ChunkCount = &n
	}

	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}

	if rec.Tags == nil {
		rec.Tags = []string{}
	}

	return rec
}

func fromRecord(id string, rec record) *models.Document {
	doc := &models.Document{
		ID:          id,
		Name:        rec.Name,
		Type:        rec.Type,
		Size:        rec.Size,
		UserID:      rec.UserID,
		URL:         rec.URL,
		StoragePath: rec.StoragePath,
		Status:      models.Status(rec.Status),
		UploadedAt:  rec.UploadedAt,
		Metadata:    rec.Metadata,
		Tags:        rec.Tags,
	}

	if rec.ChunkCount != nil {
		n := int(*rec.ChunkCount)
		doc.ChunkCount = &n
	}

	return doc
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (*models.Document, error) {
	var rec record
	if err := snap.DataTo(&rec); err != nil {
		return nil, err
	}

	return fromRecord(snap.Ref.ID, rec), nil
}

func fromSnapshots(snaps []*firestore.DocumentSnapshot) ([]*models.Document, error) {
	docs := make([]*models.Document, 0, len(snaps))

	for _, snap := range snaps {
		doc, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}
