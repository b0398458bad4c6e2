package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Fake tool scripts. They accept the same arguments as the real tools and
// write plausible output files so the pipeline can run without ffmpeg or
// auto-editor installed.
const (
	// FakeFFprobe prints a probe report for a 4 second h264/aac video
	FakeFFprobe = `cat <<'EOF'
{
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": 320, "height": 240,
     "r_frame_rate": "24/1", "avg_frame_rate": "24/1", "disposition": {"default": 1}},
    {"codec_type": "audio", "codec_name": "aac", "disposition": {"default": 1}}
  ],
  "format": {"format_name": "mov,mp4,m4a,3gp,3g2,mj2", "format_long_name": "QuickTime / MOV",
             "duration": "4.000000", "bit_rate": "250000"}
}
EOF`

	// FakeFFmpeg copies the input to the last argument and reports progress
	FakeFFmpeg = `in=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-i" ]; then in="$arg"; fi
  prev="$arg"
  out="$arg"
done
printf 'frame=   24 fps=0.0 q=28.0 size=     256kB time=00:00:01.00 bitrate=2097.2kbits/s speed=2x\r'
printf 'frame=   96 fps=0.0 q=28.0 size=    1024kB time=00:00:04.00 bitrate=2097.2kbits/s speed=2x\n'
cp "$in" "$out"`

	// FakeAutoEditor writes half of the input to the -o argument
	FakeAutoEditor = `in="$1"
out="$3"
echo "Analyzing audio~1~2~0.5"
echo "Creating new video~2~2~0"
head -c $(( $(wc -c < "$in") / 2 )) "$in" > "$out"
echo "Finished. took 0.1 seconds"`

	// FailingTool prints an error and exits non-zero
	FailingTool = `echo "Error! Invalid data found when processing input" >&2
exit 1`

	// SlowTool runs until it is terminated
	SlowTool = `echo "Analyzing audio~0~100~60"
sleep 30`
)

// TestEnv provides an isolated test environment with a temp media
// directory and a bin directory for fake tools
type TestEnv struct {
	t        *testing.T
	BaseDir  string
	MediaDir string
	BinDir   string
}

// NewTestEnv creates a new isolated test environment
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	baseDir := t.TempDir()
	env := &TestEnv{
		t:        t,
		BaseDir:  baseDir,
		MediaDir: filepath.Join(baseDir, "media"),
		BinDir:   filepath.Join(baseDir, "bin"),
	}
	for _, dir := range []string{env.MediaDir, env.BinDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	return env
}

// InstallFakeTool writes a fake executable into BinDir and returns its path
func (e *TestEnv) InstallFakeTool(name, script string) string {
	e.t.Helper()
	path, err := WriteFakeTool(e.BinDir, name, script)
	if err != nil {
		e.t.Fatalf("InstallFakeTool(%s): %v", name, err)
	}
	return path
}

// InstallFakeTools installs working fakes of ffprobe, ffmpeg and auto-editor
func (e *TestEnv) InstallFakeTools() {
	e.t.Helper()
	e.InstallFakeTool("ffprobe", FakeFFprobe)
	e.InstallFakeTool("ffmpeg", FakeFFmpeg)
	e.InstallFakeTool("auto-editor", FakeAutoEditor)
}

// UseBinDirOnly points PATH at BinDir plus the system directories needed
// by the fake scripts, so real tools are not picked up
func (e *TestEnv) UseBinDirOnly() {
	e.t.Helper()
	e.t.Setenv("PATH", strings.Join([]string{e.BinDir, "/bin", "/usr/bin"}, string(os.PathListSeparator)))
}

// WriteMedia creates a file under MediaDir and returns its path
func (e *TestEnv) WriteMedia(name string, size int) string {
	e.t.Helper()
	path := filepath.Join(e.MediaDir, name)
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		e.t.Fatalf("WriteMedia(%s): %v", name, err)
	}
	return path
}

// MediaPath returns the path of name under MediaDir
func (e *TestEnv) MediaPath(name string) string {
	return filepath.Join(e.MediaDir, name)
}

// AssertFileNonEmpty checks that a file exists and has content
func (e *TestEnv) AssertFileNonEmpty(path string) {
	e.t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		e.t.Errorf("file not found: %s", path)
		return
	}
	if info.Size() == 0 {
		e.t.Errorf("file is empty: %s", path)
	}
}

// AssertNoFile checks that a file does not exist
func (e *TestEnv) AssertNoFile(path string) {
	e.t.Helper()
	if _, err := os.Stat(path); err == nil {
		e.t.Errorf("file should not exist: %s", path)
	}
}
