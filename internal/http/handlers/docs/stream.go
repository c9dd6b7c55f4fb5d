package docs

import (
	"context"
	"docingest/internal/dto"
	"docingest/internal/models"
	errutils "docingest/internal/utils/http_errors"
	parseutil "docingest/internal/utils/parseLimit"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	eventSnapshot = "snapshot"
	eventError    = "error"
)

// Stream pushes the requester's document list as server-sent events until the
// client goes away or the subscription ends.
func Stream(ctx context.Context, log *slog.Logger, w http.ResponseWriter, r *http.Request, ds DocumentSubscriber) {
	op := pkg + "Stream"

	log = log.With(slog.String("op", op))

	requester, ok := r.Context().Value(models.UserContextKey).(*models.User)
	if !ok {
		log.Error("failed to get user from context")
		errutils.WriteJSONError(w, http.StatusForbidden, models.ErrForbidden.Error())
		return
	}

	sub, err := ds.Subscribe(ctx, requester, parseutil.ParseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		log.Error("failed to subscribe", slog.String("error", err.Error()))
		errutils.WriteJSONError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	defer sub.Close()

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("write deadline not cleared", slog.String("error", err.Error()))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	log.Debug("stream opened", slog.String("user_id", requester.ID))

	for {
		select {
		case <-ctx.Done():
			log.Debug("stream closed by client", slog.String("user_id", requester.ID))
			return
		case snap, ok := <-sub.Snapshots():
			if !ok {
				return
			}

			if snap.Err != nil {
				log.Warn("subscription error", slog.String("error", snap.Err.Error()))
				if err := writeEvent(w, eventError, dto.ErrorResponse{Error: snap.Err.Error()}); err != nil {
					log.Error("failed to write event", slog.String("error", err.Error()))
				}
				_ = rc.Flush()
				return
			}

			docs := snap.Documents
			if docs == nil {
				docs = make([]*models.Document, 0)
			}

			if err := writeEvent(w, eventSnapshot, dto.DocumentListResponse{Documents: docs}); err != nil {
				log.Warn("failed to write event", slog.String("error", err.Error()))
				return
			}

			if err := rc.Flush(); err != nil {
				log.Warn("failed to flush event", slog.String("error", err.Error()))
				return
			}
		}
	}
}

func writeEvent(w io.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
