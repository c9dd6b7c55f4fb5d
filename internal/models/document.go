package models

type Status string

const (
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusUploading, StatusProcessing, StatusReady, StatusError:
		return true
	}
	return false
}

type Document struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Size        int64          `json:"size"`
	UserID      string         `json:"userId"`
	URL         string         `json:"url"`
	StoragePath string         `json:"storagePath"`
	Status      Status         `json:"status"`
	UploadedAt  int64          `json:"uploadedAt"`
	ChunkCount  *int           `json:"chunkCount,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
}

// StatusUpdate carries the mutable part of a document. Nil fields are left untouched.
type StatusUpdate struct {
	Status     Status
	ChunkCount *int
	Metadata   map[string]any
}

// DocumentQuery selects one user's documents, newest upload first.
type DocumentQuery struct {
	UserID string
	Limit  int
}

// Snapshot is the full result of a query at one point in time.
type Snapshot struct {
	Documents []*Document
	Err       error
}

// ChunkEstimate is a placeholder until real chunking exists.
func ChunkEstimate(size int64) int {
	if size <= 0 {
		return 0
	}
	return int(size / 1000)
}

// UploadedFile describes an incoming file before it is stored.
type UploadedFile struct {
	UserID      string
	Name        string
	ContentType string
	Size        int64
}
