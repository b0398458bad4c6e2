package transcode

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/cuivienor/silence-cutter/internal/model"
	"github.com/cuivienor/silence-cutter/internal/runner"
)

// Preprocessing defaults
const (
	DefaultIntermediateSuffix = ".silencecut-tmp"
	DefaultBitrate            = "4M"
	DefaultAudioCodec         = "aac"
	DefaultAudioBitrate       = "192k"
)

// IntermediatePath returns the normalized file written next to input.
// The result only depends on input and suffix.
func IntermediatePath(input, suffix string) string {
	if suffix == "" {
		suffix = DefaultIntermediateSuffix
	}
	dir := filepath.Dir(input)
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+suffix+".mp4")
}

// TargetCRF picks a libx264 CRF that roughly keeps the source's quality
func TargetCRF(bitrate int64) int {
	kbps := bitrate / 1000
	switch {
	case kbps > 20000:
		return 18
	case kbps > 8000:
		return 20
	case kbps > 4000:
		return 22
	default:
		return 23
	}
}

// PreprocessOptions is everything BuildPreprocessArgs needs
type PreprocessOptions struct {
	Input           string
	Output          string
	Preset          model.Preset
	Encoder         model.HardwareEncoder // resolved backend, HardwareNone for software
	PreserveQuality bool
	SourceBitrate   int64 // bits per second, 0 when unknown
	DefaultBitrate  string
	AudioCodec      string
	AudioBitrate    string
	VAAPIDevice     string
}

// BuildPreprocessArgs returns the ffmpeg arguments that normalize the input
// to H.264/AAC in BT.709 with metadata stripped
func BuildPreprocessArgs(opts PreprocessOptions) []string {
	profile := profileFor(opts.Encoder)

	args := []string{"-hide_banner", "-nostdin", "-y"}
	if profile.device != nil {
		args = append(args, profile.device(opts.VAAPIDevice)...)
	}
	args = append(args, "-i", opts.Input)

	args = append(args, "-c:v", profile.codec)
	args = append(args, presetArgs(opts.Encoder, opts.Preset)...)
	args = append(args, rateControlArgs(opts)...)
	args = append(args, profile.filter...)

	audioCodec := opts.AudioCodec
	if audioCodec == "" {
		audioCodec = DefaultAudioCodec
	}
	audioBitrate := opts.AudioBitrate
	if audioBitrate == "" {
		audioBitrate = DefaultAudioBitrate
	}

	args = append(args,
		"-colorspace", "bt709",
		"-color_primaries", "bt709",
		"-color_trc", "bt709",
		"-map_metadata", "-1",
		"-c:a", audioCodec,
		"-b:a", audioBitrate,
		"-movflags", "+faststart",
		opts.Output,
	)
	return args
}

// presetArgs maps the speed preset onto the encoder's effort parameter
func presetArgs(h model.HardwareEncoder, p model.Preset) []string {
	if !p.Valid() {
		p = model.PresetBalanced
	}
	switch h {
	case model.HardwareNVENC:
		return []string{"-preset", [...]string{"p1", "p2", "p4", "p6", "p7"}[p]}
	case model.HardwareQSV:
		return []string{"-preset", [...]string{"veryfast", "faster", "medium", "slow", "veryslow"}[p]}
	case model.HardwareAMF:
		return []string{"-quality", [...]string{"speed", "speed", "balanced", "quality", "quality"}[p]}
	case model.HardwareVAAPI:
		// Higher levels trade quality for speed
		return []string{"-compression_level", [...]string{"7", "6", "4", "2", "1"}[p]}
	default:
		return []string{"-preset", [...]string{"ultrafast", "veryfast", "medium", "slow", "veryslow"}[p]}
	}
}

// rateControlArgs matches the source bitrate when preserving quality,
// otherwise targets the default bitrate
func rateControlArgs(opts PreprocessOptions) []string {
	if opts.PreserveQuality && opts.SourceBitrate > 0 {
		rate := strconv.FormatInt(opts.SourceBitrate, 10)
		buf := strconv.FormatInt(opts.SourceBitrate*2, 10)
		return []string{"-b:v", rate, "-maxrate", rate, "-bufsize", buf}
	}
	if opts.PreserveQuality {
		q := strconv.Itoa(TargetCRF(opts.SourceBitrate))
		switch opts.Encoder {
		case model.HardwareNVENC:
			return []string{"-rc", "vbr", "-cq", q, "-b:v", "0"}
		case model.HardwareQSV:
			return []string{"-global_quality", q}
		case model.HardwareAMF:
			return []string{"-rc", "cqp", "-qp_i", q, "-qp_p", q}
		case model.HardwareVAAPI:
			return []string{"-rc_mode", "CQP", "-qp", q}
		default:
			return []string{"-crf", q}
		}
	}
	bitrate := opts.DefaultBitrate
	if bitrate == "" {
		bitrate = DefaultBitrate
	}
	return []string{"-b:v", bitrate}
}

var progressTimeRe = regexp.MustCompile(`time=\s*(-?\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)

// ParseProgressTime extracts the encoded position from an ffmpeg stats line
func ParseProgressTime(line string) (float64, bool) {
	m := progressTimeRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.ParseFloat(m[1], 64)
	mins, _ := strconv.ParseFloat(m[2], 64)
	secs, _ := strconv.ParseFloat(m[3], 64)
	if h < 0 {
		return 0, false
	}
	return h*3600 + mins*60 + secs, true
}

// HardwareProbe reports which hardware encoders are usable
type HardwareProbe interface {
	Available(ctx context.Context) EncoderSet
}

// PreprocessSettings holds the configurable parts of preprocessing
type PreprocessSettings struct {
	FFmpeg             string
	DefaultBitrate     string
	AudioCodec         string
	AudioBitrate       string
	IntermediateSuffix string
	VAAPIDevice        string
}

// Preprocessor normalizes the input with ffmpeg before silence removal
type Preprocessor struct {
	run      ToolRunner
	hardware HardwareProbe
	settings PreprocessSettings
}

// NewPreprocessor creates a preprocessor. hw may be nil, in which case
// hardware requests always fall back to software encoding.
func NewPreprocessor(r ToolRunner, hw HardwareProbe, settings PreprocessSettings) *Preprocessor {
	if settings.FFmpeg == "" {
		settings.FFmpeg = "ffmpeg"
	}
	return &Preprocessor{run: r, hardware: hw, settings: settings}
}

// IntermediatePath returns where Run writes its output for input
func (p *Preprocessor) IntermediatePath(input string) string {
	return IntermediatePath(input, p.settings.IntermediateSuffix)
}

// Run writes the normalized intermediate file. Cancellation is returned as
// runner.ErrCancelled; any other failure wraps model.ErrPreprocessFailed.
func (p *Preprocessor) Run(ctx context.Context, cfg model.JobConfig, info model.MediaInfo, rep model.StageReporter) (model.StageResult, error) {
	if rep == nil {
		rep = model.DiscardReporter{}
	}
	output := p.IntermediatePath(cfg.InputPath)

	encoder := model.HardwareNone
	if cfg.Hardware != model.HardwareNone && cfg.Hardware != "" {
		var available EncoderSet
		if p.hardware != nil {
			available = p.hardware.Available(ctx)
		}
		var warning string
		encoder, warning = ResolveEncoder(cfg.Hardware, available)
		if warning != "" {
			rep.Warning(warning)
		}
	}

	args := BuildPreprocessArgs(PreprocessOptions{
		Input:           cfg.InputPath,
		Output:          output,
		Preset:          cfg.Preset,
		Encoder:         encoder,
		PreserveQuality: cfg.PreserveQuality,
		SourceBitrate:   info.Bitrate,
		DefaultBitrate:  p.settings.DefaultBitrate,
		AudioCodec:      p.settings.AudioCodec,
		AudioBitrate:    p.settings.AudioBitrate,
		VAAPIDevice:     p.settings.VAAPIDevice,
	})

	onLine := func(line string) {
		rep.Line(line)
		if info.Duration <= 0 {
			return
		}
		if pos, ok := ParseProgressTime(line); ok {
			rep.Progress(min(100, pos/info.Duration*100))
		}
	}

	result, err := p.run.Run(ctx, p.settings.FFmpeg, args, onLine)
	stage := model.StageResult{
		Stage:      model.StagePreprocess,
		ExitCode:   result.ExitCode,
		Output:     result.Output,
		OutputPath: output,
	}
	if err != nil {
		if errors.Is(err, runner.ErrCancelled) {
			return stage, err
		}
		return stage, &model.StageError{
			Stage:  model.StagePreprocess,
			Kind:   model.ErrPreprocessFailed,
			Output: result.Output,
			Err:    err,
		}
	}

	rep.Progress(100)
	return stage, nil
}
