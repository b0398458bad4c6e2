package contracts

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuivienor/silence-cutter/internal/bootstrap"
	"github.com/cuivienor/silence-cutter/internal/config"
	"github.com/cuivienor/silence-cutter/internal/model"
	"github.com/cuivienor/silence-cutter/internal/pipeline"
	"github.com/cuivienor/silence-cutter/internal/testutil"
)

const jobTimeout = 30 * time.Second

// fakeApp wires the real runner and stages to fake tool scripts in env.BinDir
func fakeApp(t *testing.T, env *testutil.TestEnv) *bootstrap.App {
	t.Helper()
	cfg := &config.Config{Tools: config.ToolsConfig{
		FFmpeg:     filepath.Join(env.BinDir, "ffmpeg"),
		FFprobe:    filepath.Join(env.BinDir, "ffprobe"),
		AutoEditor: filepath.Join(env.BinDir, "auto-editor"),
	}}
	return bootstrap.NewWithConfig(cfg, nil)
}

func jobConfig(app *bootstrap.App, input, output string) model.JobConfig {
	cfg := app.Defaults
	cfg.InputPath = input
	cfg.OutputPath = output
	return cfg
}

// collect reads events until the channel closes, calling onEvent for each
func collect(t *testing.T, events <-chan pipeline.Event, onEvent func(pipeline.Event)) []pipeline.Event {
	t.Helper()
	var got []pipeline.Event
	timeout := time.After(jobTimeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
			if onEvent != nil {
				onEvent(ev)
			}
		case <-timeout:
			t.Fatalf("job did not finish within %s", jobTimeout)
		}
	}
}

func result(t *testing.T, events []pipeline.Event) pipeline.Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events received")
	}
	last := events[len(events)-1]
	if last.Type != pipeline.EventResult {
		t.Fatalf("last event = %s, want result", last.Type)
	}
	return last
}

func run(t *testing.T, app *bootstrap.App, cfg model.JobConfig, onEvent func(pipeline.Event)) pipeline.Event {
	t.Helper()
	_, events, err := app.Pipeline.Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return result(t, collect(t, events, onEvent))
}
