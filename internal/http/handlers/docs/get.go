package docs

import (
	"context"
	"docingest/internal/dto"
	"docingest/internal/models"
	errutils "docingest/internal/utils/http_errors"
	parseutil "docingest/internal/utils/parseLimit"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

func Get(ctx context.Context, log *slog.Logger, w http.ResponseWriter, r *http.Request, dp DocumentProvider) {
	op := pkg + "Get"

	log = log.With(slog.String("op", op))

	limit := parseutil.ParseLimit(r.URL.Query().Get("limit"))

	requester, ok := r.Context().Value(models.UserContextKey).(*models.User)
	if !ok {
		log.Error("failed to get user from context")
		errutils.WriteJSONError(w, http.StatusForbidden, models.ErrForbidden.Error())
		return
	}

	docs, err := dp.ListDocuments(ctx, requester, limit)
	if err != nil {
		log.Error("failed to list documents", slog.String("error", err.Error()))
		errutils.WriteJSONError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	if docs == nil {
		docs = make([]*models.Document, 0)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(dto.DocumentListResponse{Documents: docs}); err != nil {
		log.Error("failed to write response", slog.String("error", err.Error()))
	}
}

func GetByID(ctx context.Context, log *slog.Logger, w http.ResponseWriter, r *http.Request, docID string, dp DocumentProvider) {
	op := pkg + "GetByID"

	log = log.With(slog.String("op", op))

	requester, ok := r.Context().Value(models.UserContextKey).(*models.User)
	if !ok {
		log.Error("failed to get user from context")
		errutils.WriteJSONError(w, http.StatusForbidden, models.ErrForbidden.Error())
		return
	}

	doc, err := dp.DocumentByID(ctx, docID, requester)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrForbidden):
			log.Warn("failed to get document by id, permission denied", slog.String("doc_id", docID))
			errutils.WriteJSONError(w, http.StatusForbidden, models.ErrForbidden.Error())
		case errors.Is(err, models.ErrDocumentNotFound):
			errutils.WriteJSONError(w, http.StatusNotFound, models.ErrDocumentNotFound.Error())
		default:
			log.Error("failed to get document by id", slog.String("error", err.Error()))
			errutils.WriteJSONError(w, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		log.Error("failed to write response", slog.String("error", err.Error()))
	}
}
