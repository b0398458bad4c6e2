package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// VideoOptions configures synthetic test video generation
type VideoOptions struct {
	DurationSec  float64 // Total duration in seconds (default: 4)
	SilenceStart float64 // Start of the silent section in seconds
	SilenceEnd   float64 // End of the silent section; no silence when <= SilenceStart
	NoAudio      bool    // Generate a video-only file
	VideoCodec   string  // Video codec (default: libx264)
}

// GenerateTestVideo creates a synthetic video whose audio is a 440 Hz tone
// except for an optional silent section
func GenerateTestVideo(outputPath string, opts VideoOptions) error {
	if opts.DurationSec == 0 {
		opts.DurationSec = 4
	}
	if opts.VideoCodec == "" {
		opts.VideoCodec = "libx264"
	}
	if outputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}

	// Ensure output directory exists
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	args := []string{
		"-f", "lavfi", "-i", fmt.Sprintf("testsrc=duration=%g:size=320x240:rate=24", opts.DurationSec),
	}

	if !opts.NoAudio {
		expr := "0.5*sin(2*PI*440*t)"
		if opts.SilenceEnd > opts.SilenceStart {
			expr = fmt.Sprintf("if(between(t\\,%g\\,%g)\\,0\\,%s)", opts.SilenceStart, opts.SilenceEnd, expr)
		}
		args = append(args, "-f", "lavfi", "-i",
			fmt.Sprintf("aevalsrc=%s:s=48000:d=%g", expr, opts.DurationSec))
	}

	args = append(args, "-c:v", opts.VideoCodec)
	if opts.VideoCodec == "libx264" {
		args = append(args, "-preset", "ultrafast", "-pix_fmt", "yuv420p")
	}
	if !opts.NoAudio {
		args = append(args, "-c:a", "aac")
	}
	args = append(args, "-shortest", "-y", outputPath)

	cmd := exec.Command("ffmpeg", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, output)
	}

	return nil
}

// WriteFakeTool writes an executable shell script named name into dir and
// returns its path
func WriteFakeTool(dir, name, script string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create tool directory: %w", err)
	}
	path := filepath.Join(dir, name)
	content := "#!/bin/sh\n" + script + "\n"
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		return "", fmt.Errorf("failed to write fake %s: %w", name, err)
	}
	return path, nil
}
