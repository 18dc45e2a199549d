package ffmpeg

import (
	"context"
	"errors"
	"log"
	"path/filepath"
)

// Extractor pulls the full audio track out of a media file as MP3.
type Extractor struct{}

// ExtractAudio writes workDir/audio.mp3 (44.1kHz stereo, 128kbps) from the
// given media file. The file is probed first so a source with no audio
// stream fails with a clear message instead of an ffmpeg dump.
func (Extractor) ExtractAudio(ctx context.Context, mediaPath, workDir string) (string, error) {
	info, err := Probe(ctx, mediaPath)
	if err != nil {
		return "", err
	}
	if !info.HasAudio {
		return "", errors.New("media file has no audio stream")
	}

	audioPath := filepath.Join(workDir, "audio.mp3")

	err = run(ctx,
		"-hide_banner", "-loglevel", "error",
		"-i", mediaPath,
		"-vn", // no video
		"-ar", "44100",
		"-ac", "2",
		"-b:a", "128k",
		"-y",
		audioPath,
	)
	if err != nil {
		return "", err
	}

	log.Printf("[ffmpeg] extracted audio track to %s (%.1fs source)", audioPath, info.Duration)
	return audioPath, nil
}
