package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/cuivienor/silence-cutter/internal/model"
)

// DefaultVAAPIDevice is the render node used for VA-API encoding
const DefaultVAAPIDevice = "/dev/dri/renderD128"

// EncoderSet is the set of hardware backends that can encode on this machine
type EncoderSet map[model.HardwareEncoder]bool

// Has reports whether the backend is available
func (s EncoderSet) Has(h model.HardwareEncoder) bool {
	return s[h]
}

// List returns available backends in auto-selection priority order
func (s EncoderSet) List() []model.HardwareEncoder {
	var out []model.HardwareEncoder
	for _, h := range model.VendorEncoders {
		if s[h] {
			out = append(out, h)
		}
	}
	return out
}

// ResolveEncoder maps the requested selection onto what is available.
// It returns the backend to use (HardwareNone for software) and a warning
// when the request could not be honoured.
func ResolveEncoder(requested model.HardwareEncoder, available EncoderSet) (model.HardwareEncoder, string) {
	switch {
	case requested == model.HardwareNone || requested == "":
		return model.HardwareNone, ""
	case requested == model.HardwareAuto:
		if list := available.List(); len(list) > 0 {
			return list[0], ""
		}
		return model.HardwareNone, "No hardware encoder detected, using software encoding"
	case available.Has(requested):
		return requested, ""
	default:
		return model.HardwareNone, fmt.Sprintf("%s is not available, using software encoding", requested.DisplayName())
	}
}

// encoderProfile describes how ffmpeg drives one encoder backend
type encoderProfile struct {
	codec string
	// device flags go before -i
	device func(vaapiDevice string) []string
	// filter flags get frames into a format the encoder accepts
	filter []string
}

var encoderProfiles = map[model.HardwareEncoder]encoderProfile{
	model.HardwareNone: {
		codec:  "libx264",
		filter: []string{"-pix_fmt", "yuv420p"},
	},
	model.HardwareNVENC: {
		codec:  "h264_nvenc",
		filter: []string{"-pix_fmt", "yuv420p"},
	},
	model.HardwareQSV: {
		codec: "h264_qsv",
		device: func(string) []string {
			return []string{"-init_hw_device", "qsv=hw", "-filter_hw_device", "hw"}
		},
		filter: []string{"-vf", "hwupload=extra_hw_frames=64,format=qsv"},
	},
	model.HardwareAMF: {
		codec:  "h264_amf",
		filter: []string{"-pix_fmt", "yuv420p"},
	},
	model.HardwareVAAPI: {
		codec: "h264_vaapi",
		device: func(dev string) []string {
			if dev == "" {
				dev = DefaultVAAPIDevice
			}
			return []string{"-vaapi_device", dev}
		},
		filter: []string{"-vf", "format=nv12,hwupload"},
	},
}

func profileFor(h model.HardwareEncoder) encoderProfile {
	if p, ok := encoderProfiles[h]; ok {
		return p
	}
	return encoderProfiles[model.HardwareNone]
}

// EncoderDetector finds usable hardware encoders. The first detection that
// completes is cached for the rest of the process; one cut short by a
// cancelled context is not.
type EncoderDetector struct {
	run         ToolRunner
	ffmpeg      string
	vaapiDevice string
	logger      *slog.Logger

	mu       sync.Mutex
	detected bool
	set      EncoderSet
}

// NewEncoderDetector creates a detector. An empty ffmpeg path means "ffmpeg" on PATH.
func NewEncoderDetector(r ToolRunner, ffmpeg, vaapiDevice string, logger *slog.Logger) *EncoderDetector {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EncoderDetector{
		run:         r,
		ffmpeg:      ffmpeg,
		vaapiDevice: vaapiDevice,
		logger:      logger.With("component", "encoders"),
	}
}

// Available returns the hardware backends that passed detection
func (d *EncoderDetector) Available(ctx context.Context) EncoderSet {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.detected {
		return d.set
	}

	set := d.detect(ctx)
	if ctx.Err() != nil {
		return set
	}
	d.set = set
	d.detected = true
	return set
}

func (d *EncoderDetector) detect(ctx context.Context) EncoderSet {
	set := EncoderSet{}

	result, err := d.run.Run(ctx, d.ffmpeg, []string{"-hide_banner", "-encoders"}, nil)
	if err != nil {
		d.logger.Warn("failed to list ffmpeg encoders", "error", err)
		return set
	}
	listed := ParseEncoderList(result.Output)

	for _, h := range model.VendorEncoders {
		profile := profileFor(h)
		if !listed[profile.codec] {
			continue
		}
		if _, err := d.run.Run(ctx, d.ffmpeg, TestEncodeArgs(h, d.vaapiDevice), nil); err != nil {
			d.logger.Debug("hardware encoder failed test encode", "encoder", profile.codec, "error", err)
			continue
		}
		d.logger.Info("hardware encoder available", "encoder", profile.codec)
		set[h] = true
	}
	return set
}

// ParseEncoderList extracts encoder names from `ffmpeg -encoders` output
func ParseEncoderList(output string) map[string]bool {
	names := make(map[string]bool)
	inList := false
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		// The legend ends with a dashed separator line
		if strings.HasPrefix(fields[0], "---") {
			inList = true
			continue
		}
		if !inList {
			continue
		}
		names[fields[1]] = true
	}
	return names
}

// TestEncodeArgs encodes a single synthetic frame with the backend
func TestEncodeArgs(h model.HardwareEncoder, vaapiDevice string) []string {
	profile := profileFor(h)
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "error"}
	if profile.device != nil {
		args = append(args, profile.device(vaapiDevice)...)
	}
	args = append(args,
		"-f", "lavfi",
		"-i", "color=c=black:s=256x256:d=0.1",
		"-frames:v", "1",
	)
	args = append(args, profile.filter...)
	args = append(args, "-c:v", profile.codec, "-f", "null", "-")
	return args
}
