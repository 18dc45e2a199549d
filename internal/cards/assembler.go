package cards

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/subs2srs/backend/internal/segment"
)

// AudioSource supplies audio clips cut from a full-length track.
type AudioSource interface {
	ExtractClip(ctx context.Context, start, end float64, outPath string) error
}

// ImageSource supplies a still image for a point in time. Static sources
// (a shared thumbnail) may ignore the timestamp.
type ImageSource interface {
	ExtractImage(ctx context.Context, at float64, outPath string) error
}

// Card is one flashcard: an audio clip, a still image, and the sentence text.
type Card struct {
	AudioPath string  `json:"audio_path"`
	ImagePath string  `json:"image_path"`
	Sentence  string  `json:"sentence"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
}

// Options tunes assembly behavior.
type Options struct {
	// Padding is added before and after each sentence span when cutting its
	// clip, so word onsets and offsets are not clipped. The padded start is
	// clamped at zero.
	Padding float64
	// SharedImage extracts a single image once and reuses it on every card,
	// instead of grabbing a frame per sentence.
	SharedImage bool
	// OnProgress, if set, is called after each card is produced.
	OnProgress func(done, total int)
}

// DefaultPadding is the tuned clip padding in seconds.
const DefaultPadding = 0.25

// Assemble produces one card per sentence, in order. Media files are written
// into workDir with deterministic index-based names so the packaging step can
// find them without re-deriving paths. Any extraction failure aborts the whole
// assembly; partial decks are never returned.
func Assemble(ctx context.Context, sentences []segment.Sentence, audio AudioSource, image ImageSource, workDir string, opts Options) ([]Card, error) {
	if opts.Padding == 0 {
		opts.Padding = DefaultPadding
	}

	var sharedImagePath string
	if opts.SharedImage && len(sentences) > 0 {
		sharedImagePath = filepath.Join(workDir, "thumb.jpg")
		if err := image.ExtractImage(ctx, sentences[0].Start, sharedImagePath); err != nil {
			return nil, fmt.Errorf("extract shared image: %w", err)
		}
	}

	result := make([]Card, 0, len(sentences))
	for i, s := range sentences {
		clipPath := filepath.Join(workDir, fmt.Sprintf("clip_%04d.mp3", i))

		start := s.Start - opts.Padding
		if start < 0 {
			start = 0
		}
		end := s.End + opts.Padding

		if err := audio.ExtractClip(ctx, start, end, clipPath); err != nil {
			return nil, fmt.Errorf("extract clip %d [%.2f-%.2f]: %w", i, start, end, err)
		}

		imagePath := sharedImagePath
		if !opts.SharedImage {
			imagePath = filepath.Join(workDir, fmt.Sprintf("frame_%04d.jpg", i))
			if err := image.ExtractImage(ctx, s.Start, imagePath); err != nil {
				return nil, fmt.Errorf("extract image %d at %.2fs: %w", i, s.Start, err)
			}
		}

		result = append(result, Card{
			AudioPath: clipPath,
			ImagePath: imagePath,
			Sentence:  s.Text,
			Start:     s.Start,
			End:       s.End,
		})

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(sentences))
		}
	}

	log.Printf("[assembly] produced %d cards in %s", len(result), workDir)
	return result, nil
}
