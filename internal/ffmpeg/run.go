package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
)

// run executes an ffmpeg invocation and folds its stderr into the error,
// since ffmpeg reports everything useful there.
func run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, string(output))
	}
	return nil
}
