// Command gridlint validates road grid configuration files (JSON or YAML).
// For every file it checks:
//   - the document parses
//   - every required field and piece table entry is present
//   - spacing, scale and surface are within the supported limits
//   - bridge fillers fit the configured spacing
//   - a grid built from it can draw a road across its full width and height
//     and tears down without leaking pieces
//
// Arguments may be files or directories; directories are scanned for
// *.json, *.yaml and *.yml. With no arguments the configs directory is used.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"github.com/wricardo/roadgrid/grid/engine"
)

var (
	errNoConfigs  = errors.New("no configuration files found")
	errLintFailed = errors.New("some configurations have errors")
)

// LintResult captures the outcome of validating a single file.
type LintResult struct {
	File     string
	Valid    bool
	Problems []error
	Info     []string
}

// lintConfig loads and validates a single configuration file, then exercises
// a grid built from it.
func lintConfig(path string) LintResult {
	result := LintResult{File: filepath.Base(path), Valid: true}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Valid = false
		result.Problems = append(result.Problems, fmt.Errorf("failed to read file: %w", err))
		return result
	}

	config, err := engine.DecodeGridConfig(data, engine.FormatForFile(path))
	if err != nil {
		result.Valid = false
		result.Problems = append(result.Problems, err)
		return result
	}

	if problems := engine.ConfigProblems(config); len(problems) > 0 {
		result.Valid = false
		result.Problems = problems
		return result
	}

	info, err := smokeTest(config)
	if err != nil {
		result.Valid = false
		result.Problems = append(result.Problems, err)
		return result
	}

	width, height := config.Dimensions()
	result.Info = append(result.Info,
		fmt.Sprintf("✓ Name: %s", config.Name),
		fmt.Sprintf("✓ Grid: %dx%d points", width, height),
		fmt.Sprintf("✓ Spacing: %gx%g", config.Spacing.X, config.Spacing.Y),
	)
	result.Info = append(result.Info, info...)
	return result
}

// smokeTest builds a grid from config, drags a road across the middle row and
// the middle column, and checks that bridges are created and every piece is
// released on teardown.
func smokeTest(config *engine.GridConfig) (info []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("grid smoke test panicked: %v", r)
		}
	}()

	renderer := engine.NewMemoryRenderer()
	editor, err := engine.NewEditor(config, renderer)
	if err != nil {
		return nil, err
	}

	runs := []struct {
		axis     string
		from, to func(w, h int) engine.Position
	}{
		{
			axis: "horizontal",
			from: func(w, h int) engine.Position { return engine.Position{X: 0, Y: h / 2} },
			to:   func(w, h int) engine.Position { return engine.Position{X: w - 1, Y: h / 2} },
		},
		{
			axis: "vertical",
			from: func(w, h int) engine.Position { return engine.Position{X: w / 2, Y: 0} },
			to:   func(w, h int) engine.Position { return engine.Position{X: w / 2, Y: h - 1} },
		},
	}

	for _, run := range runs {
		if err := editor.InitFromConfig(); err != nil {
			return nil, err
		}
		g := editor.Grid()
		w, h := g.Width(), g.Height()

		from, to := run.from(w, h), run.to(w, h)
		want := to.X - from.X + to.Y - from.Y
		if want == 0 {
			info = append(info, fmt.Sprintf("• %s road: grid has a single point on this axis", run.axis))
			continue
		}

		if _, err := editor.Drag(from, to); err != nil {
			return nil, err
		}
		snap := editor.Snapshot()
		if len(snap.Bridges) != want {
			return nil, fmt.Errorf("%s road from (%d,%d) to (%d,%d) built %d bridges, expected %d",
				run.axis, from.X, from.Y, to.X, to.Y, len(snap.Bridges), want)
		}
		info = append(info, fmt.Sprintf("✓ %s road: %d bridges of %d segments, %d pieces",
			run.axis, want, snap.Bridges[0].Segments, renderer.Count()))

		editor.Delete()
		if renderer.Count() != 0 {
			return nil, fmt.Errorf("%d pieces left after deleting the grid", renderer.Count())
		}
	}

	return info, nil
}

// collectFiles expands directories into the config files they contain
func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		stat, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !stat.IsDir() {
			files = append(files, arg)
			continue
		}

		for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
			matches, err := filepath.Glob(filepath.Join(arg, pattern))
			if err != nil {
				return nil, err
			}
			files = append(files, matches...)
		}
	}
	sort.Strings(files)
	return files, nil
}

// report prints one result and returns its problems labelled with the file name
func report(out io.Writer, result LintResult, quiet bool) error {
	fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), result.File)

	if result.Valid {
		fmt.Fprintln(out, "✅ VALID")
		if !quiet {
			for _, info := range result.Info {
				fmt.Fprintln(out, "  "+info)
			}
		}
		return nil
	}

	fmt.Fprintln(out, "❌ INVALID")
	var errs error
	for _, problem := range result.Problems {
		fmt.Fprintln(out, "  ❌ "+problem.Error())
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", result.File, problem))
	}
	return errs
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "gridlint",
		Usage:     "Validate road grid configuration files",
		ArgsUsage: "[file or directory ...]",
		Writer:    out,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Only print problems"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) == 0 {
				args = []string{"configs"}
			}

			files, err := collectFiles(args)
			if err != nil {
				return fmt.Errorf("error finding config files: %w", err)
			}
			if len(files) == 0 {
				return errNoConfigs
			}

			var errs error
			for _, file := range files {
				errs = multierr.Append(errs, report(out, lintConfig(file), cmd.Bool("quiet")))
			}

			fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
			if errs != nil {
				fmt.Fprintf(out, "❌ %d problems found\n", len(multierr.Errors(errs)))
				return fmt.Errorf("%w: %w", errLintFailed, errs)
			}
			fmt.Fprintf(out, "✅ All %d configurations are valid!\n", len(files))
			return nil
		},
	}
}

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, errLintFailed) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
