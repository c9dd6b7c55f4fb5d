package dto

import "docingest/internal/models"

type DocumentResponse struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Type       string        `json:"type"`
	Size       int64         `json:"size"`
	Status     models.Status `json:"status"`
	UploadedAt int64         `json:"uploadedAt"`
	URL        string        `json:"url"`
	ChunkCount *int          `json:"chunkCount,omitempty"`
}

type UploadResponse struct {
	Success  bool             `json:"success"`
	Document DocumentResponse `json:"document"`
}

type StatusUpdateRequest struct {
	Status     string   `json:"status"`
	ChunkCount *float64 `json:"chunkCount,omitempty"`
}

type StatusUpdateResponse struct {
	Success    bool          `json:"success"`
	DocumentID string        `json:"documentId"`
	Status     models.Status `json:"status"`
	ChunkCount *int          `json:"chunkCount,omitempty"`
}

type DocumentListResponse struct {
	Documents []*models.Document `json:"documents"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func ToDocumentResponse(doc *models.Document) DocumentResponse {
	return DocumentResponse{
		ID:         doc.ID,
		Name:       doc.Name,
		Type:       doc.Type,
		Size:       doc.Size,
		Status:     doc.Status,
		UploadedAt: doc.UploadedAt,
		URL:        doc.URL,
		ChunkCount: doc.ChunkCount,
	}
}
