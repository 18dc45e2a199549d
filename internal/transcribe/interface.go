package transcribe

import (
	"context"

	"github.com/subs2srs/backend/internal/segment"
)

// Status of an external transcription job.
type Status string

const (
	StatusPending  Status = "pending"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// PollResult is one observation of an external transcription job. Words are
// only present once the status is complete; timestamps are in seconds.
type PollResult struct {
	Status       Status
	Words        []segment.Word
	ErrorMessage string
}

// Transcriber is the contract for speech-to-text services that run
// asynchronously: submit an audio file, then poll until done.
type Transcriber interface {
	Submit(ctx context.Context, audioPath, language string) (string, error)
	Poll(ctx context.Context, jobID string) (*PollResult, error)
}
