package job

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/subs2srs/backend/internal/cards"
	"github.com/subs2srs/backend/internal/segment"
	"github.com/subs2srs/backend/internal/transcribe"
)

// Fetcher obtains the source media and its metadata from a remote host.
type Fetcher interface {
	Fetch(ctx context.Context, url, workDir string) (mediaPath, title string, err error)
	FetchThumbnail(ctx context.Context, url, outPath string) error
}

// AudioExtractor pulls the full-length audio track out of a media file.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, mediaPath, workDir string) (string, error)
}

// Packager serializes a finished card list into a self-contained deck file.
type Packager interface {
	BuildPackage(cardList []cards.Card, deckName, outPath string) error
}

// TranscriptCache lets the pipeline skip the transcription service when the
// same source was transcribed before. Optional.
type TranscriptCache interface {
	Get(sourceURL string) ([]segment.Word, bool)
	Put(sourceURL, title string, words []segment.Word) error
}

// Deps are the collaborators one pipeline run drives. The clip and image
// sources are constructed per job because their inputs (the extracted audio
// track, the downloaded media) only exist mid-run.
type Deps struct {
	Fetcher     Fetcher
	Audio       AudioExtractor
	Transcriber transcribe.Transcriber
	Packager    Packager
	ClipSource  func(audioPath string) cards.AudioSource
	FrameSource func(mediaPath string) cards.ImageSource
	StillSource func(imagePath string) cards.ImageSource
	Cache       TranscriptCache
}

// Config tunes pipeline behavior.
type Config struct {
	Segmenter       segment.Config
	DefaultLanguage string
	PollInterval    time.Duration
	PollTimeout     time.Duration
}

// Pipeline sequences the stages of a deck generation job. One call to Run
// drives one job from created to complete (or error) on the caller's
// goroutine; the HTTP layer runs it in the background.
type Pipeline struct {
	deps Deps
	cfg  Config
}

func NewPipeline(deps Deps, cfg Config) *Pipeline {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Minute
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "ja"
	}
	return &Pipeline{deps: deps, cfg: cfg}
}

// Run executes the full pipeline for one job. Stages run strictly
// sequentially; the first failure moves the job to the terminal error state
// and no further collaborator calls are issued.
func (p *Pipeline) Run(ctx context.Context, j *Job) {
	if err := p.run(ctx, j); err != nil {
		log.Printf("[job] %s failed: %v", j.ID, err)
		j.fail(err)
		return
	}
	log.Printf("[job] %s complete: %d cards", j.ID, j.Status().CardCount)
}

func (p *Pipeline) run(ctx context.Context, j *Job) error {
	j.setState(StateDownloading, 10, "Downloading source media")
	mediaPath, title, err := p.deps.Fetcher.Fetch(ctx, j.Params.URL, j.WorkDir)
	if err != nil {
		return stageErr(StateDownloading, FailSourceUnavailable, err)
	}
	j.setTitle(title)

	var thumbPath string
	if j.Params.SharedImage {
		thumbPath = filepath.Join(j.WorkDir, "thumbnail.jpg")
		if err := p.deps.Fetcher.FetchThumbnail(ctx, j.Params.URL, thumbPath); err != nil {
			return stageErr(StateDownloading, FailSourceUnavailable, err)
		}
	}

	j.setState(StateExtractingAudio, 20, "Extracting audio track")
	audioPath, err := p.deps.Audio.ExtractAudio(ctx, mediaPath, j.WorkDir)
	if err != nil {
		return stageErr(StateExtractingAudio, FailMediaProcessing, err)
	}

	j.setState(StateTranscribing, 30, "Transcribing audio (this can take several minutes)")
	words, err := p.transcribeWords(ctx, j, audioPath, title)
	if err != nil {
		return stageErr(StateTranscribing, FailTranscription, err)
	}

	j.setState(StateSegmenting, 60, "Segmenting transcript into sentences")
	sentences := segment.FilterValid(segment.Segment(words, p.cfg.Segmenter), p.cfg.Segmenter)
	if len(sentences) == 0 {
		return stageErr(StateSegmenting, FailSegmentationEmpty,
			errors.New("no usable sentences in transcript"))
	}
	log.Printf("[job] %s segmented %d words into %d sentences", j.ID, len(words), len(sentences))

	j.setState(StateAssemblingCards, 70, fmt.Sprintf("Extracting media for %d cards", len(sentences)))
	var imageSource cards.ImageSource
	if j.Params.SharedImage {
		imageSource = p.deps.StillSource(thumbPath)
	} else {
		imageSource = p.deps.FrameSource(mediaPath)
	}
	opts := cards.Options{
		SharedImage: j.Params.SharedImage,
		OnProgress: func(done, total int) {
			// Card extraction spans the 70-95 band.
			j.setProgress(70 + 25*done/total)
		},
	}
	cardList, err := cards.Assemble(ctx, sentences, p.deps.ClipSource(audioPath), imageSource, j.WorkDir, opts)
	if err != nil {
		return stageErr(StateAssemblingCards, FailMediaProcessing, err)
	}

	// The source media and full audio track are no longer needed; a long
	// recording can be hundreds of megabytes.
	os.Remove(mediaPath)
	os.Remove(audioPath)

	j.setState(StatePackaging, 95, "Building Anki package")
	deckName := j.Params.DeckName
	if deckName == "" {
		deckName = title
	}
	if deckName == "" {
		deckName = "Japanese Video"
	}
	outPath := filepath.Join(j.WorkDir, sanitizeFilename(deckName)+".apkg")
	if err := p.deps.Packager.BuildPackage(cardList, deckName, outPath); err != nil {
		return stageErr(StatePackaging, FailPackaging, err)
	}

	j.complete(outPath, cardList)
	return nil
}

// transcribeWords returns the word-level transcript, consulting the cache
// before submitting to the external service.
func (p *Pipeline) transcribeWords(ctx context.Context, j *Job, audioPath, title string) ([]segment.Word, error) {
	if p.deps.Cache != nil {
		if words, ok := p.deps.Cache.Get(j.Params.URL); ok {
			log.Printf("[job] %s using cached transcript (%d words)", j.ID, len(words))
			return words, nil
		}
	}

	lang := j.Params.Language
	if lang == "" {
		lang = p.cfg.DefaultLanguage
	}

	extID, err := p.deps.Transcriber.Submit(ctx, audioPath, lang)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	log.Printf("[job] %s submitted transcription %s", j.ID, extID)

	words, err := p.pollTranscription(ctx, extID)
	if err != nil {
		return nil, err
	}

	if p.deps.Cache != nil {
		if err := p.deps.Cache.Put(j.Params.URL, title, words); err != nil {
			log.Printf("[job] %s failed to cache transcript: %v", j.ID, err)
		}
	}
	return words, nil
}

// pollTranscription polls the external transcription job on a fixed interval
// until it completes, fails, or the deadline passes.
func (p *Pipeline) pollTranscription(ctx context.Context, extID string) ([]segment.Word, error) {
	deadline := time.Now().Add(p.cfg.PollTimeout)
	for {
		res, err := p.deps.Transcriber.Poll(ctx, extID)
		if err != nil {
			return nil, fmt.Errorf("poll: %w", err)
		}
		switch res.Status {
		case transcribe.StatusComplete:
			if len(res.Words) == 0 {
				return nil, errors.New("transcription returned no words")
			}
			return res.Words, nil
		case transcribe.StatusFailed:
			return nil, fmt.Errorf("transcription service reported failure: %s", res.ErrorMessage)
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("transcription %s did not finish within %s", extID, p.cfg.PollTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

// sanitizeFilename keeps deck-derived file names safe for the filesystem.
func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" {
		return "deck"
	}
	return name
}
