package job

import (
	"sync"
	"time"

	"github.com/subs2srs/backend/internal/cards"
)

// State is the current pipeline stage of a job.
type State string

const (
	StateCreated         State = "created"
	StateDownloading     State = "downloading"
	StateExtractingAudio State = "extracting_audio"
	StateTranscribing    State = "transcribing"
	StateSegmenting      State = "segmenting"
	StateAssemblingCards State = "assembling_cards"
	StatePackaging       State = "packaging"
	StateComplete        State = "complete"
	StateError           State = "error"
)

// Terminal reports whether no further processing happens in this state.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError
}

// Params are the user-supplied inputs for one deck generation run.
type Params struct {
	URL         string `json:"url"`
	DeckName    string `json:"deck_name,omitempty"`
	Language    string `json:"language,omitempty"`
	SharedImage bool   `json:"shared_image,omitempty"`
}

// Job tracks one deck generation run from creation to package download.
// The registry owns its existence; only the pipeline driving it mutates its
// content. All reads go through Status() so a poll never observes a label
// that does not match the progress it is reported with.
type Job struct {
	ID      string
	WorkDir string
	Params  Params

	mu          sync.Mutex
	state       State
	progress    int
	label       string
	errMsg      string
	title       string
	cardCount   int
	packagePath string
	cards       []cards.Card
	createdAt   time.Time
	finishedAt  time.Time
}

// Status is the poller-facing snapshot of a job.
type Status struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Progress  int       `json:"progress"`
	Label     string    `json:"label"`
	Error     string    `json:"error,omitempty"`
	Title     string    `json:"title,omitempty"`
	CardCount int       `json:"card_count,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Status returns a consistent snapshot of the job.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Status{
		ID:        j.ID,
		State:     j.state,
		Progress:  j.progress,
		Label:     j.label,
		Error:     j.errMsg,
		Title:     j.title,
		CardCount: j.cardCount,
		CreatedAt: j.createdAt,
	}
}

// Cards returns the assembled cards once the job is complete, or nil.
func (j *Job) Cards() []cards.Card {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != StateComplete {
		return nil
	}
	out := make([]cards.Card, len(j.cards))
	copy(out, j.cards)
	return out
}

// PackagePath returns the finished package path, or "" before completion.
func (j *Job) PackagePath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != StateComplete {
		return ""
	}
	return j.packagePath
}

// Title returns the source title once known.
func (j *Job) Title() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.title
}

// FinishedAt returns when the job reached a terminal state (zero if running).
func (j *Job) FinishedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finishedAt
}

// setState advances the job to a new stage. Progress never decreases and a
// terminal job is never mutated again, so a stage still running after the
// caller removed the job cannot resurrect it.
func (j *Job) setState(state State, progress int, label string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.state = state
	j.label = label
	if progress > j.progress {
		j.progress = progress
	}
}

// setProgress bumps progress within the current stage.
func (j *Job) setProgress(progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	if progress > j.progress {
		j.progress = progress
	}
}

func (j *Job) setTitle(title string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.title = title
}

// fail moves the job to the terminal error state.
func (j *Job) fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.state = StateError
	j.label = "Failed"
	j.errMsg = err.Error()
	j.finishedAt = time.Now()
}

// complete records the finished package and card list.
func (j *Job) complete(packagePath string, cardList []cards.Card) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.Terminal() {
		return
	}
	j.state = StateComplete
	j.progress = 100
	j.label = "Complete"
	j.packagePath = packagePath
	j.cards = cardList
	j.cardCount = len(cardList)
	j.finishedAt = time.Now()
}
