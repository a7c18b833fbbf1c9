package models

import (
	"encoding/json"
	"time"
)

// Payload is what a step form hands to the controller. Data carries the
// structured fields; Upload is only set for the resume upload step.
type Payload struct {
	Data   json.RawMessage
	Upload *Upload
}

func (p Payload) IsEmpty() bool {
	return len(p.Data) == 0 && p.Upload == nil
}

type Upload struct {
	FileName    string
	ContentType string
	Content     []byte
}

type StepSubmission struct {
	PersonaID string
	StepIndex int
	Payload   json.RawMessage
	UpdatedAt time.Time
}

type ResumeUpload struct {
	PersonaID   string
	FileName    string
	ContentType string
	Size        int64
	SHA256      string
	Content     []byte
	UploadedAt  time.Time
}
