package docs

import (
	"context"
	"docingest/internal/dto"
	"docingest/internal/models"
	errutils "docingest/internal/utils/http_errors"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// multipart overhead allowed on top of the file size ceiling
const formOverhead = 1 << 20

func Upload(ctx context.Context, log *slog.Logger, w http.ResponseWriter, r *http.Request, maxSize int64, du DocumentUploader) {
	op := pkg + "Upload"

	log = log.With(slog.String("op", op))

	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			log.Warn("request body too large", slog.Int64("limit", maxErr.Limit))
			errutils.WriteJSONError(w, http.StatusRequestEntityTooLarge, models.ErrFileTooLarge.Error())
			return
		}
		log.Warn("failed to parse multipart form", slog.String("error", err.Error()))
		errutils.WriteJSONError(w, http.StatusBadRequest, msgMissingFields)
		return
	}
	defer r.MultipartForm.RemoveAll()

	userID := r.FormValue("userId")

	file, header, err := r.FormFile("file")
	if err != nil || userID == "" {
		log.Warn("missing file or user id")
		errutils.WriteJSONError(w, http.StatusBadRequest, msgMissingFields)
		return
	}
	defer file.Close()

	doc, err := du.UploadDocument(ctx, models.UploadedFile{
		UserID:      userID,
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}, file)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidParams):
			errutils.WriteJSONError(w, http.StatusBadRequest, msgMissingFields)
		case errors.Is(err, models.ErrUnsupportedType):
			errutils.WriteJSONError(w, http.StatusBadRequest, msgUnsupportedType)
		case errors.Is(err, models.ErrFileTooLarge):
			errutils.WriteJSONError(w, http.StatusRequestEntityTooLarge, models.ErrFileTooLarge.Error())
		case errors.Is(err, models.ErrUploadFailed):
			log.Error("failed to store file", slog.String("error", err.Error()))
			errutils.WriteJSONError(w, http.StatusInternalServerError, msgUploadFailed)
		default:
			log.Error("failed to upload document", slog.String("error", err.Error()))
			errutils.WriteJSONError(w, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	response := dto.UploadResponse{
		Success:  true,
		Document: dto.ToDocumentResponse(doc),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error("failed to write response", slog.String("error", err.Error()))
	}
}
