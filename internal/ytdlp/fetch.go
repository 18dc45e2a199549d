package ytdlp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Client fetches source media through the yt-dlp tool.
type Client struct {
	// Format is the yt-dlp format selector. The default keeps a video
	// stream so per-sentence frames can be grabbed; 720p is plenty for
	// the 640x360 card images.
	Format string
}

const defaultFormat = "bv*[height<=720]+ba/b"

func NewClient(format string) *Client {
	if format == "" {
		format = defaultFormat
	}
	return &Client{Format: format}
}

// Fetch downloads the source media into workDir and returns its path and the
// source title.
func (c *Client) Fetch(ctx context.Context, url, workDir string) (string, string, error) {
	mediaPath := filepath.Join(workDir, "video.mp4")

	if err := runYtdlp(ctx, "--format", c.Format, "--output", mediaPath, url); err != nil {
		return "", "", err
	}
	if _, err := os.Stat(mediaPath); err != nil {
		return "", "", fmt.Errorf("downloaded file missing: %w", err)
	}

	title, err := c.title(ctx, url)
	if err != nil {
		// The media is already here; a missing title should not sink the job.
		log.Printf("[ytdlp] could not read title for %s: %v", url, err)
		title = ""
	}

	log.Printf("[ytdlp] fetched %q to %s", title, mediaPath)
	return mediaPath, title, nil
}

// FetchThumbnail downloads the source's thumbnail as JPEG to outPath.
func (c *Client) FetchThumbnail(ctx context.Context, url, outPath string) error {
	base := strings.TrimSuffix(outPath, filepath.Ext(outPath))
	err := runYtdlp(ctx,
		"--skip-download",
		"--write-thumbnail",
		"--convert-thumbnails", "jpg",
		"--output", base,
		url,
	)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(outPath); statErr != nil {
		return fmt.Errorf("thumbnail missing after fetch: %w", statErr)
	}
	return nil
}

func (c *Client) title(ctx context.Context, url string) (string, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp", "--get-title", url)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("yt-dlp --get-title: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

func runYtdlp(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "yt-dlp", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("yt-dlp: %w: %s", err, string(output))
	}
	return nil
}
