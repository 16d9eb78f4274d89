package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/roadgrid/grid/engine"
)

func writeConfig(t *testing.T, dir, name string, config *engine.GridConfig) string {
	t.Helper()

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

const compactYAML = `name: compact
description: Small yaml grid
surface: {width: 20, depth: 10}
spacing: {x: 4, y: 5}
scale: {x: 1, y: 1, z: 1}
horizontal_bridge: {name: bridge_segment, width: 1, depth: 2}
vertical_bridge: {name: bridge_segment, width: 1, depth: 2, rotation: 90}
pieces:
  N: {name: road_end, width: 2, depth: 2}
  S: {name: road_end, width: 2, depth: 2, rotation: 180}
  W: {name: road_end, width: 2, depth: 2, rotation: 270}
  E: {name: road_end, width: 2, depth: 2, rotation: 90}
  NS: {name: road_straight, width: 2, depth: 2}
  WE: {name: road_straight, width: 2, depth: 2, rotation: 90}
  NE: {name: road_corner, width: 2, depth: 2}
  SE: {name: road_corner, width: 2, depth: 2, rotation: 90}
  SW: {name: road_corner, width: 2, depth: 2, rotation: 180}
  NW: {name: road_corner, width: 2, depth: 2, rotation: 270}
  NSW: {name: road_tee, width: 2, depth: 2}
  NSE: {name: road_tee, width: 2, depth: 2}
  NWE: {name: road_tee, width: 2, depth: 2}
  SWE: {name: road_tee, width: 2, depth: 2}
  ALL: {name: road_cross, width: 2, depth: 2}
`

func TestLintConfig(t *testing.T) {
	dir := t.TempDir()

	missingPiece := engine.DefaultGridConfig()
	delete(missingPiece.Pieces, "NS")

	badSpacing := engine.DefaultGridConfig()
	badSpacing.Spacing = engine.Vec2{}
	badSpacing.Description = ""

	yamlPath := filepath.Join(dir, "compact.yaml")
	if err := os.WriteFile(yamlPath, []byte(compactYAML), 0644); err != nil {
		t.Fatalf("Failed to write yaml: %v", err)
	}
	brokenPath := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(brokenPath, []byte("{"), 0644); err != nil {
		t.Fatalf("Failed to write broken config: %v", err)
	}

	tests := []struct {
		name         string
		path         string
		wantValid    bool
		wantProblems int
		wantInfo     []string
	}{
		{
			name:      "default config",
			path:      writeConfig(t, dir, "default.json", engine.DefaultGridConfig()),
			wantValid: true,
			wantInfo: []string{
				"✓ Grid: 10x10 points",
				"✓ horizontal road: 9 bridges of 3 segments",
				"✓ vertical road: 9 bridges of 3 segments",
			},
		},
		{
			name:      "yaml config",
			path:      yamlPath,
			wantValid: true,
			wantInfo:  []string{"✓ Name: compact", "✓ Grid: 6x3 points", "✓ horizontal road: 5 bridges"},
		},
		{
			name:         "missing piece",
			path:         writeConfig(t, dir, "missing.json", missingPiece),
			wantProblems: 1,
		},
		{
			name:         "every problem reported",
			path:         writeConfig(t, dir, "spacing.json", badSpacing),
			wantProblems: 2,
		},
		{
			name:         "unparseable",
			path:         brokenPath,
			wantProblems: 1,
		},
		{
			name:         "missing file",
			path:         filepath.Join(dir, "nope.json"),
			wantProblems: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := lintConfig(tt.path)

			if result.Valid != tt.wantValid {
				t.Fatalf("Expected valid=%v, got %v (problems: %v)", tt.wantValid, result.Valid, result.Problems)
			}
			if !tt.wantValid && len(result.Problems) != tt.wantProblems {
				t.Errorf("Expected %d problems, got %d: %v", tt.wantProblems, len(result.Problems), result.Problems)
			}

			info := strings.Join(result.Info, "\n")
			for _, want := range tt.wantInfo {
				if !strings.Contains(info, want) {
					t.Errorf("Expected %q in info:\n%s", want, info)
				}
			}
		})
	}
}

func TestSmokeTestSinglePointAxis(t *testing.T) {
	config := engine.DefaultGridConfig()
	config.Surface.Depth = 3

	info, err := smokeTest(config)
	if err != nil {
		t.Fatalf("smokeTest failed: %v", err)
	}
	if !strings.Contains(strings.Join(info, "\n"), "vertical road: grid has a single point") {
		t.Errorf("Expected the vertical run to be skipped: %v", info)
	}
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.json", "a.yaml", "c.yml", "notes.txt"} {
		os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644)
	}
	single := filepath.Join(t.TempDir(), "single.json")
	os.WriteFile(single, []byte("{}"), 0644)

	files, err := collectFiles([]string{dir, single})
	if err != nil {
		t.Fatalf("collectFiles failed: %v", err)
	}
	if len(files) != 4 {
		t.Fatalf("Expected 4 files, got %v", files)
	}
	for _, f := range files {
		if strings.HasSuffix(f, ".txt") {
			t.Errorf("Unexpected file %s", f)
		}
	}

	if _, err := collectFiles([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("Expected error for a missing path")
	}
}

func TestApp(t *testing.T) {
	t.Run("all valid", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "default.json", engine.DefaultGridConfig())

		var out bytes.Buffer
		if err := newApp(&out).Run(context.Background(), []string{"gridlint", dir}); err != nil {
			t.Fatalf("Expected success, got %v", err)
		}
		if !strings.Contains(out.String(), "All 1 configurations are valid") {
			t.Errorf("Unexpected output:\n%s", out.String())
		}
	})

	t.Run("invalid", func(t *testing.T) {
		dir := t.TempDir()
		bad := engine.DefaultGridConfig()
		bad.Name = ""
		writeConfig(t, dir, "bad.json", bad)
		writeConfig(t, dir, "good.json", engine.DefaultGridConfig())

		var out bytes.Buffer
		err := newApp(&out).Run(context.Background(), []string{"gridlint", "-q", dir})
		if !errors.Is(err, errLintFailed) {
			t.Fatalf("Expected lint failure, got %v", err)
		}
		if !strings.Contains(err.Error(), "bad.json: config validation: name is required") {
			t.Errorf("Expected labelled problem in %v", err)
		}
		if strings.Contains(out.String(), "✓ Name") {
			t.Errorf("Quiet mode should not print info:\n%s", out.String())
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		var out bytes.Buffer
		err := newApp(&out).Run(context.Background(), []string{"gridlint", t.TempDir()})
		if !errors.Is(err, errNoConfigs) {
			t.Errorf("Expected errNoConfigs, got %v", err)
		}
	})
}
