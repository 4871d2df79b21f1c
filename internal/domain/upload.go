package domain

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/id"
)

// UploadState tracks the two-phase upload handshake.
type UploadState string

const (
	UploadStateInitiated UploadState = "Initiated"
	UploadStateFinalized UploadState = "Finalized"
)

// UploadMetadata is what the client declares before uploading.
type UploadMetadata struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Upload is the upload aggregate.
type Upload struct {
	ID       id.ID          `json:"id"`
	Owner    id.ID          `json:"owner"`
	State    UploadState    `json:"state"`
	Metadata UploadMetadata `json:"metadata"`
}

// InitiatedUpload is returned from the initiate endpoint: where to PUT the
// bytes and until when the grant is valid.
type InitiatedUpload struct {
	ID         id.ID             `json:"id"`
	URL        string            `json:"url"`
	Fields     map[string]string `json:"fields"`
	Expiration time.Time         `json:"expiration"`
}
