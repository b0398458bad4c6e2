package properties

import (
	"context"
	"fmt"

	"github.com/cuivienor/silence-cutter/internal/model"
)

// Inspector reads media metadata
type Inspector interface {
	Inspect(ctx context.Context, path string) (model.MediaInfo, error)
}

// AssertDurationReduced verifies that output is at least minCut seconds
// shorter than input
func AssertDurationReduced(ctx context.Context, insp Inspector, inputPath, outputPath string, minCut float64) error {
	in, err := insp.Inspect(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("failed to inspect input: %w", err)
	}
	out, err := insp.Inspect(ctx, outputPath)
	if err != nil {
		return fmt.Errorf("failed to inspect output: %w", err)
	}
	if in.Duration <= 0 || out.Duration <= 0 {
		return fmt.Errorf("unknown duration: input %.2fs, output %.2fs", in.Duration, out.Duration)
	}

	if cut := in.Duration - out.Duration; cut < minCut {
		return fmt.Errorf("output %.2fs is only %.2fs shorter than input %.2fs (want at least %.2fs)",
			out.Duration, cut, in.Duration, minCut)
	}
	return nil
}
