package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/voxelssd/internal/config"
	"github.com/cwbudde/voxelssd/internal/volume"
)

// writeTestSeries writes a header followed by samples in native byte order.
func writeTestSeries(t *testing.T, header int, samples []int16) string {
	t.Helper()

	data := make([]byte, header)
	for _, s := range samples {
		data = binary.NativeEndian.AppendUint16(data, uint16(s))
	}
	path := filepath.Join(t.TempDir(), "series.nii")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(path string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Input.Path = path
	cfg.Input.HeaderSize = 16
	cfg.Input.Dims = volume.Dims{X: 2, Y: 1, Z: 1}
	cfg.Input.NumImages = 3
	return cfg
}

func TestAnalyze(t *testing.T) {
	path := writeTestSeries(t, 16, []int16{0, 0, 1, 1, 2, 2})

	for _, workers := range []int{1, 4} {
		cfg := testConfig(path)
		cfg.Processing.Workers = workers

		result, err := analyze(context.Background(), cfg)
		if err != nil {
			t.Fatalf("analyze failed: %v", err)
		}
		if len(result.SSD) != 2 || result.SSD[0] != 2 || result.SSD[1] != 8 {
			t.Errorf("SSD = %v, want [2 8]", result.SSD)
		}
		if err := result.Validate(); err != nil {
			t.Errorf("Result invalid: %v", err)
		}
	}
}

func TestAnalyze_ShapeMismatch(t *testing.T) {
	path := writeTestSeries(t, 16, []int16{0, 0, 1, 1, 2, 2, 3, 3})

	cfg := testConfig(path)
	_, err := analyze(context.Background(), cfg)
	if !errors.Is(err, volume.ErrPreconditionViolation) {
		t.Fatalf("Expected precondition violation, got %v", err)
	}

	cfg.Input.Strict = false
	result, err := analyze(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Lenient analyze failed: %v", err)
	}
	if result.Shape.NumImages != 4 || len(result.SSD) != 3 {
		t.Errorf("Expected 4 volumes derived from file size, got %d (%v)", result.Shape.NumImages, result.SSD)
	}
}

func TestAnalyze_MissingFile(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "missing.nii"))
	_, err := analyze(context.Background(), cfg)
	if !errors.Is(err, volume.ErrResourceUnavailable) {
		t.Fatalf("Expected resource unavailable, got %v", err)
	}
}

func TestRunAndListCommands(t *testing.T) {
	path := writeTestSeries(t, 16, []int16{0, 0, 1, 1, 2, 2})
	data := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "absent.yaml")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	defer rootCmd.SetOut(nil)
	defer rootCmd.SetErr(nil)

	rootCmd.SetArgs([]string{
		"run", path,
		"--config", cfgPath,
		"--log-level", "error",
		"--header-size", "16",
		"--img-size", "2",
		"--num-images", "3",
		"--save",
		"--data-dir", data,
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, want := range []string{"ssd_first: 2", "ssd_last: 8", "saved run "} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("run output missing %q:\n%s", want, out.String())
		}
	}

	out.Reset()
	rootCmd.SetArgs([]string{"results", "list", "--data-dir", data, "--log-level", "error"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("results list failed: %v", err)
	}
	if !strings.Contains(out.String(), "Total results: 1") {
		t.Errorf("list output unexpected:\n%s", out.String())
	}
}
