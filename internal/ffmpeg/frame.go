package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
)

// FrameGrabber extracts single still frames from a video file.
type FrameGrabber struct {
	MediaPath  string
	Resolution string // e.g. "640x360"
}

func NewFrameGrabber(mediaPath string) *FrameGrabber {
	return &FrameGrabber{MediaPath: mediaPath, Resolution: "640x360"}
}

// ExtractImage grabs one frame at the given timestamp. Seeking before the
// input lets ffmpeg jump to the nearest keyframe, which is much faster on
// long recordings.
func (g *FrameGrabber) ExtractImage(ctx context.Context, at float64, outPath string) error {
	return run(ctx,
		"-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", at),
		"-i", g.MediaPath,
		"-frames:v", "1",
		"-q:v", "2",
		"-s", g.Resolution,
		"-y",
		outPath,
	)
}

// StillImage serves a single pre-fetched image (a source thumbnail) for
// every request, ignoring the timestamp.
type StillImage struct {
	SourcePath string
}

func NewStillImage(sourcePath string) *StillImage {
	return &StillImage{SourcePath: sourcePath}
}

func (s *StillImage) ExtractImage(_ context.Context, _ float64, outPath string) error {
	if outPath == s.SourcePath {
		return nil
	}
	src, err := os.Open(s.SourcePath)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}
