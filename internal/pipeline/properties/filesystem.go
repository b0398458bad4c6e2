package properties

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AssertOutputNotLargerThanInput verifies the output file doesn't exceed the input size by more than maxRatio.
// maxRatio of 1.0 means the output can be at most as large as the input.
func AssertOutputNotLargerThanInput(inputPath, outputPath string, maxRatio float64) error {
	in, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("failed to stat input: %w", err)
	}
	out, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("failed to stat output: %w", err)
	}

	if in.Size() > 0 {
		ratio := float64(out.Size()) / float64(in.Size())
		if ratio > maxRatio {
			return fmt.Errorf("output size %d is %.1fx input size %d (max allowed: %.1fx)",
				out.Size(), ratio, in.Size(), maxRatio)
		}
	}
	return nil
}

// AssertNoIntermediateFiles verifies no file in dir carries the intermediate suffix
func AssertNoIntermediateFiles(dir, suffix string) error {
	var leftovers []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.Contains(info.Name(), suffix) {
			rel, _ := filepath.Rel(dir, path)
			leftovers = append(leftovers, rel)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	if len(leftovers) > 0 {
		return fmt.Errorf("intermediate files left behind: %s", strings.Join(leftovers, ", "))
	}
	return nil
}
