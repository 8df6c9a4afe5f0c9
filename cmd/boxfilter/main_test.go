package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestPNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 24; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 10), uint8(y * 15), 90, 255})
		}
	}
	path := filepath.Join(t.TempDir(), "sloth.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create input: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode input: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Success(t *testing.T) {
	in := writeTestPNG(t)
	want := filepath.Join(filepath.Dir(in), "sloth_boxFilter.png")

	code, stdout, stderr := runCLI(t, in)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	if got := strings.TrimSpace(stdout); got != "Saved filtered image: "+want {
		t.Errorf("stdout: got %q", got)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestRun_FormatAndDevice(t *testing.T) {
	in := writeTestPNG(t)

	code, stdout, stderr := runCLI(t, "--device", "cpu", "--gray", "lightness", "--format", "pgm", "--stats", in)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	for _, s := range []string{"sloth_boxFilter.pgm", "device", "cpu", "lightness", "filter", "before", "after"} {
		if !strings.Contains(stdout, s) {
			t.Errorf("stats output missing %q:\n%s", s, stdout)
		}
	}
}

func TestRun_JSON(t *testing.T) {
	in := writeTestPNG(t)

	code, stdout, stderr := runCLI(t, "--json", in)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	var report struct {
		OutputPath string `json:"output_path"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		Device     string `json:"device"`
		Before     struct {
			Variance float64 `json:"variance"`
		} `json:"before"`
		After struct {
			Variance float64 `json:"variance"`
		} `json:"after"`
	}
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
	}
	if report.Width != 24 || report.Height != 16 || report.Device != "parallel" {
		t.Errorf("report: %+v", report)
	}
	if report.After.Variance > report.Before.Variance {
		t.Errorf("variance grew: %v -> %v", report.Before.Variance, report.After.Variance)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("GIF? no"), 0o644); err != nil {
		t.Fatal(err)
	}
	in := writeTestPNG(t)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing input", []string{filepath.Join(dir, "missing.png")}, 2},
		{"unsupported input", []string{garbage}, 3},
		{"lossy output", []string{"--format", "jpg", in}, 5},
		{"unknown device", []string{"--device", "npp", in}, 1},
		{"unknown gray method", []string{"--gray", "sepia", in}, 1},
		{"bad log level", []string{"--log-level", "loud", in}, 1},
		{"unknown flag", []string{"--radius", "3", in}, 1},
		{"too many args", []string{in, in}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			if code != tt.want {
				t.Errorf("exit code: got %d, want %d (stderr: %s)", code, tt.want, stderr)
			}
			if !strings.HasPrefix(stderr, "boxfilter: ") {
				t.Errorf("stderr should start with the program name: %q", stderr)
			}
		})
	}
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "--version")
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if !strings.HasPrefix(stdout, "boxfilter "+Version) || !strings.Contains(stdout, "Git commit:") {
		t.Errorf("version output: %q", stdout)
	}
}

func TestRun_DebugLogging(t *testing.T) {
	in := writeTestPNG(t)

	code, _, stderr := runCLI(t, "--log-level", "debug", in)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	for _, s := range []string{"level=DEBUG", "msg=upload", "msg=\"saved image\""} {
		if !strings.Contains(stderr, s) {
			t.Errorf("debug log missing %s:\n%s", s, stderr)
		}
	}
}
