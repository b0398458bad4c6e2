package transcode

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cuivienor/silence-cutter/internal/model"
	"github.com/cuivienor/silence-cutter/internal/runner"
)

// ToolRunner runs an external tool to completion
type ToolRunner interface {
	Run(ctx context.Context, tool string, args []string, onLine runner.LineFunc) (runner.Result, error)
}

// vfrTolerance is how far real and average frame rates may drift before
// a file is flagged as variable frame rate
const vfrTolerance = 2.0

// probeOutput is the subset of `ffprobe -print_format json` output we read
type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	FormatName     string `json:"format_name"`
	FormatLongName string `json:"format_long_name"`
	Duration       string `json:"duration"`
	BitRate        string `json:"bit_rate"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Duration     string `json:"duration"`
	BitRate      string `json:"bit_rate"`
	Disposition  struct {
		Default int `json:"default"`
	} `json:"disposition"`
}

// Inspector reads media metadata with ffprobe
type Inspector struct {
	run     ToolRunner
	ffprobe string
}

// NewInspector creates an inspector. An empty ffprobe path means "ffprobe" on PATH.
func NewInspector(r ToolRunner, ffprobe string) *Inspector {
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	return &Inspector{run: r, ffprobe: ffprobe}
}

// ProbeArgs returns the ffprobe arguments used to inspect path
func ProbeArgs(path string) []string {
	return []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
}

// Inspect probes path. Every failure wraps model.ErrInspectionFailed.
func (i *Inspector) Inspect(ctx context.Context, path string) (model.MediaInfo, error) {
	info := model.MediaInfo{Path: path}

	fi, err := os.Stat(path)
	if err != nil {
		return info, fmt.Errorf("%w: %w", model.ErrInspectionFailed, err)
	}
	if fi.IsDir() {
		return info, fmt.Errorf("%w: %s is a directory", model.ErrInspectionFailed, path)
	}

	result, err := i.run.Run(ctx, i.ffprobe, ProbeArgs(path), nil)
	if err != nil {
		return info, fmt.Errorf("%w: %w", model.ErrInspectionFailed, err)
	}

	parsed, err := ParseProbe([]byte(result.Output))
	if err != nil {
		return info, err
	}
	parsed.Path = path
	return parsed, nil
}

// ParseProbe converts ffprobe JSON into MediaInfo. Missing or malformed
// fields are left at their zero value.
func ParseProbe(data []byte) (model.MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return model.MediaInfo{}, fmt.Errorf("%w: failed to parse ffprobe output: %w", model.ErrInspectionFailed, err)
	}

	info := model.MediaInfo{
		Format:   out.Format.FormatLongName,
		Duration: parseFloat(out.Format.Duration),
		Bitrate:  parseInt(out.Format.BitRate),
	}
	if info.Format == "" {
		info.Format = out.Format.FormatName
	}

	video := pickStream(out.Streams, "video")
	audio := pickStream(out.Streams, "audio")

	if video != nil {
		info.VideoCodec = video.CodecName
		info.Width = video.Width
		info.Height = video.Height

		rate := parseRate(video.RFrameRate)
		avg := parseRate(video.AvgFrameRate)
		info.FPS = avg
		if info.FPS == 0 {
			info.FPS = rate
		}
		if rate > 0 && avg > 0 && math.Abs(rate-avg) > vfrTolerance {
			info.VariableFrameRate = true
		}

		if info.Duration == 0 {
			info.Duration = parseFloat(video.Duration)
		}
		if info.Bitrate == 0 {
			info.Bitrate = parseInt(video.BitRate)
		}
	}
	if audio != nil {
		info.AudioCodec = audio.CodecName
	}

	return info, nil
}

// pickStream prefers the default stream of a type, falling back to the first one
func pickStream(streams []probeStream, codecType string) *probeStream {
	var first *probeStream
	for i := range streams {
		s := &streams[i]
		if s.CodecType != codecType {
			continue
		}
		if s.Disposition.Default == 1 {
			return s
		}
		if first == nil {
			first = s
		}
	}
	return first
}

// parseRate parses an ffprobe rational like "30000/1001"
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseFloat(s)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
