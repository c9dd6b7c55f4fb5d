package documentservice

import (
	"context"
	"docingest/internal/models"
	"docingest/internal/repositories/reactive"
	"docingest/internal/repositories/storage"
	"docingest/internal/validator"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	uuid "github.com/satori/go.uuid"
)

const pkg = "documentService/"

type Options struct {
	// QueueProcessing stores uploads as "uploading" and hands them to the
	// processing worker instead of marking them ready at once.
	QueueProcessing  bool
	AllowedMimeTypes []string
	// ListLimit caps how many documents one user's list holds. Zero means
	// no cap.
	ListLimit int
}

type DocumentService struct {
	log        *slog.Logger
	docRepo    DocumentRepository
	cache      Cache
	objects    ObjectStore
	notifier   ChangeNotifier
	subscriber Subscriber
	publisher  TaskPublisher
	opts       Options
	now        func() time.Time
}

func New(
	log *slog.Logger,
	docRepo DocumentRepository,
	cache Cache,
	objects ObjectStore,
	notifier ChangeNotifier,
	subscriber Subscriber,
	publisher TaskPublisher,
	opts Options,
) *DocumentService {
	if opts.ListLimit < 0 {
		opts.ListLimit = 0
	}

	return &DocumentService{
		log:        log,
		docRepo:    docRepo,
		cache:      cache,
		objects:    objects,
		notifier:   notifier,
		subscriber: subscriber,
		publisher:  publisher,
		opts:       opts,
		now:        time.Now,
	}
}

func (ds *DocumentService) UploadDocument(ctx context.Context, file models.UploadedFile, content io.Reader) (*models.Document, error) {
	op := pkg + "UploadDocument"

	log := ds.log.With(slog.String("op", op))

	log.Debug("attempting to upload document",
		slog.String("name", file.Name),
		slog.String("user_id", file.UserID),
		slog.String("content_type", file.ContentType))

	if file.UserID == "" || file.Name == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidParams)
	}

	if !validator.IsAllowedMediaType(file.ContentType, ds.opts.AllowedMimeTypes) {
		log.Warn("unsupported media type", slog.String("content_type", file.ContentType))
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnsupportedType)
	}

	now := ds.now()
	ext := validator.Extension(file.Name)

	obj, err := ds.objects.Upload(ctx, storage.ObjectPath(file.UserID, ext, now), file.ContentType, file.Size, content)
	if err != nil {
		if errors.Is(err, models.ErrFileTooLarge) {
			log.Warn("file exceeds size limit", slog.Int64("size", file.Size))
			return nil, fmt.Errorf("%s: %w", op, models.ErrFileTooLarge)
		}
		log.Error("failed to store object", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, models.ErrUploadFailed)
	}

	doc := &models.Document{
		ID:          uuid.NewV4().String(),
		Name:        file.Name,
		Type:        ext,
		Size:        obj.Size,
		UserID:      file.UserID,
		URL:         obj.URL,
		StoragePath: obj.Path,
		UploadedAt:  now.UnixMilli(),
		Metadata:    map[string]any{},
		Tags:        []string{},
	}

	if ds.queued() {
		doc.Status = models.StatusUploading
	} else {
		chunks := models.ChunkEstimate(obj.Size)
		doc.Status = models.StatusReady
		doc.ChunkCount = &chunks
	}

	if err := ds.docRepo.CreateDocument(ctx, doc); err != nil {
		log.Error("failed to save document record", slog.String("error", err.Error()))
		if err := ds.objects.Delete(ctx, obj.Path); err != nil {
			log.Warn("failed to remove orphaned object", slog.String("path", obj.Path), slog.String("error", err.Error()))
		}

		return nil, fmt.Errorf("%s: %w", op, models.ErrInternal)
	}

	ds.changed(ctx, log, doc)

	if ds.queued() {
		if err := ds.publisher.PublishProcessTask(ctx, doc.ID); err != nil {
			log.Error("failed to enqueue processing", slog.String("doc_id", doc.ID), slog.String("error", err.Error()))

			failed, err := ds.UpdateStatus(ctx, doc.ID, models.StatusUpdate{
				Status:   models.StatusError,
				Metadata: map[string]any{"error": "failed to enqueue processing"},
			})
			if err == nil {
				doc = failed
			}
		}
	}

	log.Debug("document uploaded successfully", slog.String("doc_id", doc.ID), slog.String("status", string(doc.Status)))

	return doc, nil
}

// UpdateStatus applies a status change. Any valid status is accepted from any state.
func (ds *DocumentService) UpdateStatus(ctx context.Context, docID string, upd models.StatusUpdate) (*models.Document, error) {
	op := pkg + "UpdateStatus"

	log := ds.log.With(slog.String("op", op))

	log.Debug("attempting to update status", slog.String("doc_id", docID), slog.String("status", string(upd.Status)))

	if !upd.Status.IsValid() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidStatus)
	}

	if upd.ChunkCount != nil && *upd.ChunkCount < 0 {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidChunkCount)
	}

	doc, err := ds.docRepo.UpdateStatus(ctx, docID, upd)
	if err != nil {
		if errors.Is(err, models.ErrDocumentNotFound) {
			log.Warn("document not found", slog.String("doc_id", docID))
			return nil, fmt.Errorf("%s: %w", op, models.ErrDocumentNotFound)
		}

		log.Error("failed to update status", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, models.ErrInternal)
	}

	ds.changed(ctx, log, doc)

	log.Debug("status updated successfully", slog.String("doc_id", docID))

	return doc, nil
}

// DocumentByID returns a document owned by requester.
func (ds *DocumentService) DocumentByID(ctx context.Context, docID string, requester *models.User) (*models.Document, error) {
	op := pkg + "DocumentByID"

	log := ds.log.With(slog.String("op", op))

	doc, err := ds.Document(ctx, docID)
	if err != nil {
		return nil, err
	}

	if doc.UserID != requester.ID {
		log.Warn("user doesn't have access for document", slog.String("doc_id", docID), slog.String("user_id", requester.ID))
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}

	return doc, nil
}

// Document reads a document without an ownership check, through the cache.
func (ds *DocumentService) Document(ctx context.Context, docID string) (*models.Document, error) {
	op := pkg + "Document"

	log := ds.log.With(slog.String("op", op))

	cacheKey := documentKey(docID)

	docJSON, err := ds.cache.Get(ctx, cacheKey)
	if err == nil && docJSON != "" {
		doc, err := jsonToDoc(docJSON)
		if err == nil {
			return doc, nil
		}
		log.Warn("failed to parse cached doc", slog.String("error", err.Error()))
	}

	doc, err := ds.docRepo.DocumentByID(ctx, docID)
	if err != nil {
		if errors.Is(err, models.ErrDocumentNotFound) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrDocumentNotFound)
		}
		log.Error("failed to get document by id", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, models.ErrInternal)
	}

	if docJSON, err := toJSON(doc); err != nil {
		log.Error("failed to marshal doc", slog.String("error", err.Error()))
	} else if err := ds.cache.Set(ctx, cacheKey, docJSON); err != nil {
		log.Warn("failed to set doc to cache", slog.String("error", err.Error()))
	}

	return doc, nil
}

// ListDocuments returns the requester's documents, newest first.
func (ds *DocumentService) ListDocuments(ctx context.Context, requester *models.User, limit int) ([]*models.Document, error) {
	op := pkg + "ListDocuments"

	log := ds.log.With(slog.String("op", op))

	log.Debug("attempting to list documents", slog.String("user_id", requester.ID), slog.Int("limit", limit))

	cacheKey := listKey(requester.ID)

	var docs []*models.Document

	docsJSON, err := ds.cache.Get(ctx, cacheKey)
	if err == nil && docsJSON != "" {
		docs, err = jsonToDocs(docsJSON)
		if err != nil {
			log.Warn("failed to parse cached docs", slog.String("error", err.Error()))
			docs = nil
		}
	}

	if docs == nil {
		docs, err = ds.docRepo.ListByUser(ctx, models.DocumentQuery{UserID: requester.ID, Limit: ds.opts.ListLimit})
		if err != nil {
			log.Error("failed to list documents", slog.String("error", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, models.ErrInternal)
		}

		if docsJSON, err := toJSON(docs); err != nil {
			log.Error("failed to marshal docs", slog.String("error", err.Error()))
		} else if err := ds.cache.Set(ctx, cacheKey, docsJSON); err != nil {
			log.Warn("failed to set docs in cache", slog.String("error", err.Error()))
		}
	}

	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	log.Debug("documents listed successfully", slog.Int("count", len(docs)))

	return docs, nil
}

// Subscribe streams snapshots of the requester's documents until ctx is done
// or the subscription is closed.
func (ds *DocumentService) Subscribe(ctx context.Context, requester *models.User, limit int) (*reactive.Subscription, error) {
	op := pkg + "Subscribe"

	if ds.opts.ListLimit > 0 && (limit <= 0 || limit > ds.opts.ListLimit) {
		limit = ds.opts.ListLimit
	}
	if limit < 0 {
		limit = 0
	}

	sub, err := ds.subscriber.Subscribe(ctx, models.DocumentQuery{UserID: requester.ID, Limit: limit})
	if err != nil {
		ds.log.Error("failed to subscribe", slog.String("op", op), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, models.ErrInternal)
	}

	return sub, nil
}

func (ds *DocumentService) queued() bool {
	return ds.opts.QueueProcessing && ds.publisher != nil
}

// changed drops cached copies and wakes the owner's subscribers.
func (ds *DocumentService) changed(ctx context.Context, log *slog.Logger, doc *models.Document) {
	if err := ds.cache.Del(ctx, documentKey(doc.ID), listKey(doc.UserID)); err != nil {
		log.Error("failed to invalidate cache", slog.String("error", err.Error()))
	}

	if err := ds.notifier.NotifyChanged(ctx, doc); err != nil {
		log.Error("failed to notify subscribers", slog.String("doc_id", doc.ID), slog.String("error", err.Error()))
	}
}

func documentKey(docID string) string {
	return "doc:" + docID
}

func listKey(userID string) string {
	return "docs:" + userID
}

func toJSON(v any) (string, error) {
	res, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	return string(res), nil
}

func jsonToDocs(s string) ([]*models.Document, error) {
	if len(s) == 0 {
		return nil, errors.New("empty json string")
	}

	docs := make([]*models.Document, 0)

	if err := json.Unmarshal([]byte(s), &docs); err != nil {
		return nil, err
	}

	return docs, nil
}

func jsonToDoc(s string) (*models.Document, error) {
	if len(s) == 0 {
		return nil, errors.New("empty json string")
	}

	var doc models.Document
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}
