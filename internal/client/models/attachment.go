package models

// Attachment references a receipt or screenshot stored next to a session.
// The binary lives at ContentUri on the device; UploadRequired marks
// attachments whose bytes still have to be pushed to remote storage.
type Attachment struct {
	BaseModel

	Filename       string         `json:"filename"`
	MimeType       *string        `json:"mime_type,omitempty"`
	ContentUri     string         `json:"content_uri"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      string         `json:"created_at"`
	UploadRequired bool           `json:"upload_required"`
}
