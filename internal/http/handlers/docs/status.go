package docs

import (
	"context"
	"docingest/internal/dto"
	"docingest/internal/models"
	errutils "docingest/internal/utils/http_errors"
	"docingest/internal/validator"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

func UpdateStatus(ctx context.Context, log *slog.Logger, w http.ResponseWriter, r *http.Request, docID string, su StatusUpdater) {
	op := pkg + "UpdateStatus"

	log = log.With(slog.String("op", op))

	var req dto.StatusUpdateRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("failed to decode body", slog.String("error", err.Error()))
		errutils.WriteJSONError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	defer r.Body.Close()

	status := models.Status(req.Status)
	if !status.IsValid() {
		errutils.WriteJSONError(w, http.StatusBadRequest, msgInvalidStatus)
		return
	}

	upd := models.StatusUpdate{Status: status}

	if req.ChunkCount != nil {
		if !validator.IsValidChunkCount(*req.ChunkCount) {
			errutils.WriteJSONError(w, http.StatusBadRequest, msgInvalidChunks)
			return
		}
		chunks := int(*req.ChunkCount)
		upd.ChunkCount = &chunks
	}

	if _, err := su.UpdateStatus(ctx, docID, upd); err != nil {
		switch {
		case errors.Is(err, models.ErrDocumentNotFound):
			errutils.WriteJSONError(w, http.StatusNotFound, models.ErrDocumentNotFound.Error())
		case errors.Is(err, models.ErrInvalidStatus):
			errutils.WriteJSONError(w, http.StatusBadRequest, msgInvalidStatus)
		case errors.Is(err, models.ErrInvalidChunkCount):
			errutils.WriteJSONError(w, http.StatusBadRequest, msgInvalidChunks)
		default:
			log.Error("failed to update status", slog.String("doc_id", docID), slog.String("error", err.Error()))
			errutils.WriteJSONError(w, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	response := dto.StatusUpdateResponse{
		Success:    true,
		DocumentID: docID,
		Status:     status,
		ChunkCount: upd.ChunkCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error("failed to write response", slog.String("error", err.Error()))
	}
}
