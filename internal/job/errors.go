package job

import "fmt"

// FailureKind classifies pipeline failures so every user-visible error is
// attributable to exactly one stage.
type FailureKind string

const (
	FailSourceUnavailable FailureKind = "SourceUnavailable"
	FailMediaProcessing   FailureKind = "MediaProcessingFailure"
	FailTranscription     FailureKind = "TranscriptionFailure"
	FailSegmentationEmpty FailureKind = "SegmentationEmpty"
	FailPackaging         FailureKind = "PackagingFailure"
)

// StageError wraps a collaborator failure with the stage it happened in and
// its taxonomy tag. The underlying cause is surfaced verbatim.
type StageError struct {
	Stage State
	Kind  FailureKind
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Stage)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage State, kind FailureKind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}
