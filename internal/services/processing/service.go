package processingservice

import (
	"bytes"
	"context"
	"docingest/internal/broker/nats"
	"docingest/internal/models"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const pkg = "processingService/"

// PageCounter reports the number of pages in a PDF.
type PageCounter func(rs io.ReadSeeker) (int, error)

func CountPDFPages(rs io.ReadSeeker) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return api.PageCount(rs, conf)
}

type ProcessingService struct {
	log        *slog.Logger
	docs       DocumentStore
	objects    ObjectOpener
	countPages PageCounter
}

func New(log *slog.Logger, docs DocumentStore, objects ObjectOpener, countPages PageCounter) *ProcessingService {
	if countPages == nil {
		countPages = CountPDFPages
	}

	return &ProcessingService{
		log:        log,
		docs:       docs,
		objects:    objects,
		countPages: countPages,
	}
}

// HandleMessage processes one task. A returned error means the task should be
// redelivered; processing failures are recorded on the document instead.
func (ps *ProcessingService) HandleMessage(ctx context.Context, data []byte) error {
	op := pkg + "HandleMessage"

	log := ps.log.With(slog.String("op", op))

	var task nats.ProcessTask
	if err := json.Unmarshal(data, &task); err != nil || task.DocumentID == "" {
		log.Warn("dropping malformed task", slog.String("payload", string(data)))
		return nil
	}

	log = log.With(slog.String("doc_id", task.DocumentID))

	doc, err := ps.docs.Document(ctx, task.DocumentID)
	if err != nil {
		if errors.Is(err, models.ErrDocumentNotFound) {
			log.Warn("document not found, dropping task")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := ps.docs.UpdateStatus(ctx, doc.ID, models.StatusUpdate{Status: models.StatusProcessing}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	metadata, procErr := ps.inspect(ctx, doc)
	if procErr != nil {
		log.Error("failed to process document", slog.String("error", procErr.Error()))

		_, err := ps.docs.UpdateStatus(ctx, doc.ID, models.StatusUpdate{
			Status:   models.StatusError,
			Metadata: map[string]any{"error": procErr.Error()},
		})
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		return nil
	}

	chunks := models.ChunkEstimate(doc.Size)

	if _, err := ps.docs.UpdateStatus(ctx, doc.ID, models.StatusUpdate{
		Status:     models.StatusReady,
		ChunkCount: &chunks,
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("document processed", slog.Int("chunk_count", chunks))

	return nil
}

func (ps *ProcessingService) inspect(ctx context.Context, doc *models.Document) (map[string]any, error) {
	rc, err := ps.objects.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}

	metadata := map[string]any{"bytes": len(content)}

	if doc.Type == "pdf" {
		pages, err := ps.countPages(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("failed to read pdf: %w", err)
		}
		metadata["pages"] = pages
	}

	return metadata, nil
}
