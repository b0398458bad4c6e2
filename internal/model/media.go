package model

import (
	"fmt"
	"math"
	"strings"
)

const unknownValue = "unknown"

// MediaInfo is a read-only snapshot of an input file's metadata.
// Zero values mean the field could not be determined.
type MediaInfo struct {
	Path              string
	Format            string  // container format name
	VideoCodec        string
	AudioCodec        string  // empty when the file has no audio stream
	Width             int
	Height            int
	FPS               float64
	Duration          float64 // seconds
	Bitrate           int64   // bits per second
	VariableFrameRate bool
}

// Resolution returns WIDTHxHEIGHT
func (m MediaInfo) Resolution() string {
	if m.Width <= 0 || m.Height <= 0 {
		return unknownValue
	}
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// DurationString returns MM:SS, or HH:MM:SS for an hour or more
func (m MediaInfo) DurationString() string {
	if m.Duration <= 0 || math.IsNaN(m.Duration) || math.IsInf(m.Duration, 0) {
		return unknownValue
	}
	total := int(m.Duration)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// BitrateString returns the bitrate in kbps
func (m MediaInfo) BitrateString() string {
	if m.Bitrate <= 0 {
		return unknownValue
	}
	return fmt.Sprintf("%d kbps", m.Bitrate/1000)
}

// FormatString returns the container format, or "unknown"
func (m MediaInfo) FormatString() string {
	return orUnknown(m.Format)
}

// CodecString returns the video codec, or "unknown"
func (m MediaInfo) CodecString() string {
	return orUnknown(m.VideoCodec)
}

// AudioString returns the audio codec, or "none" when no audio stream exists
func (m MediaInfo) AudioString() string {
	if m.AudioCodec == "" {
		return "none"
	}
	return m.AudioCodec
}

// HasAudio returns true if the probe found an audio stream
func (m MediaInfo) HasAudio() bool {
	return m.AudioCodec != ""
}

// problematicCodecs are codecs known to trip up silence analysis without normalizing first
var problematicCodecs = map[string]bool{
	"av1":        true,
	"mpeg2video": true,
	"mpeg1video": true,
	"wmv3":       true,
	"theora":     true,
}

// PreprocessHints lists reasons the input would benefit from preprocessing
func (m MediaInfo) PreprocessHints() []string {
	var hints []string
	if m.VariableFrameRate {
		hints = append(hints, "Variable frame rate detected (common in phone recordings)")
	}
	if problematicCodecs[strings.ToLower(m.VideoCodec)] {
		hints = append(hints, fmt.Sprintf("Codec '%s' may cause compatibility issues", m.VideoCodec))
	}
	if m.Path != "" && !m.HasAudio() {
		hints = append(hints, "No audio track found; silence removal needs audio")
	}
	return hints
}

func orUnknown(s string) string {
	if s == "" {
		return unknownValue
	}
	return s
}
