package ffmpeg

import (
	"context"
	"fmt"
	"log"
)

// Clipper cuts clips from one audio track. The first attempt stream-copies
// (fast, no re-encode); if the container refuses to cut on the requested
// boundary, the second attempt re-encodes. Both failures are reported so a
// genuine tooling problem is not masked by the fallback.
type Clipper struct {
	AudioPath string
}

func NewClipper(audioPath string) *Clipper {
	return &Clipper{AudioPath: audioPath}
}

// ExtractClip writes the [start, end] range of the audio track to outPath.
func (c *Clipper) ExtractClip(ctx context.Context, start, end float64, outPath string) error {
	copyErr := run(ctx, clipArgs(c.AudioPath, start, end, outPath, true)...)
	if copyErr == nil {
		return nil
	}

	log.Printf("[ffmpeg] stream copy failed for %s, re-encoding: %v", outPath, copyErr)
	if reencodeErr := run(ctx, clipArgs(c.AudioPath, start, end, outPath, false)...); reencodeErr != nil {
		return fmt.Errorf("stream copy (%v); re-encode: %w", copyErr, reencodeErr)
	}
	return nil
}

func clipArgs(audioPath string, start, end float64, outPath string, streamCopy bool) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", start),
		"-i", audioPath,
		"-t", fmt.Sprintf("%.3f", end-start),
	}
	if streamCopy {
		args = append(args, "-c", "copy")
	} else {
		args = append(args, "-b:a", "128k")
	}
	return append(args, "-y", outPath)
}
