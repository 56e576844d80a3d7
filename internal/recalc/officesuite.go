package recalc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"

	"github.com/vinodismyname/mcpxcel/pkg/mcperr"
	"github.com/xuri/excelize/v2"
)

// safePathSegment matches the characters the office-suite backend will
// accept in a temp-file path component; anything else is rejected as
// InvalidParams rather than passed to the subprocess unescaped, per
// spec.md §4.5's out-of-process argument-safety requirement.
var safePathSegment = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// OfficeSuiteBackend drives a headless office binary over a sanitized
// command channel for full-fidelity recalculation. It is selected when the
// engine is configured for office-suite compatibility; the in-process
// backend remains the default.
type OfficeSuiteBackend struct {
	// BinaryPath is the absolute path to the headless office executable.
	BinaryPath string
	// ScratchDir is a writable directory the backend uses for the
	// intermediate file it hands to the subprocess by reference (never by
	// inline command-line content).
	ScratchDir string
}

func (b *OfficeSuiteBackend) Name() string { return "office_suite" }

// Recalc writes the workbook to a scratch file, invokes the office binary
// against that file by path reference (never interpolating sheet/range
// strings into a shell command line), reloads the result, and reports the
// evaluated cell count. Any argument that does not match safePathSegment is
// rejected before a subprocess is ever spawned.
func (b *OfficeSuiteBackend) Recalc(ctx context.Context, file *excelize.File, sheet string) (Outcome, error) {
	if b.BinaryPath == "" {
		return Outcome{}, mcperr.New(mcperr.Unsupported, "office-suite backend not configured")
	}

	scratchName := fmt.Sprintf("recalc-%d.xlsx", os.Getpid())
	if !safePathSegment.MatchString(scratchName) {
		return Outcome{}, mcperr.New(mcperr.InvalidParams, "unsafe scratch file name %q", scratchName)
	}
	scratchPath := filepath.Join(b.ScratchDir, scratchName)

	if err := file.SaveAs(scratchPath); err != nil {
		return Outcome{}, fmt.Errorf("recalc: write scratch file: %w", err)
	}
	defer os.Remove(scratchPath)

	cmd := exec.CommandContext(ctx, b.BinaryPath, "--headless", "--convert-to", "xlsx", "--outdir", b.ScratchDir, scratchPath)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Outcome{Backend: "office_suite"}, ctx.Err()
		}
		return Outcome{}, mcperr.New(mcperr.BackendError, "office-suite recalc failed: %v", err)
	}

	recalculated, err := excelize.OpenFile(scratchPath)
	if err != nil {
		return Outcome{}, fmt.Errorf("recalc: reload scratch file: %w", err)
	}
	defer recalculated.Close()

	sheets := []string{sheet}
	if sheet == "" {
		sheets = recalculated.GetSheetList()
	}
	total := 0
	for _, sh := range sheets {
		cells, err := formulaCells(recalculated, sh)
		if err != nil {
			return Outcome{}, fmt.Errorf("recalc: scan recalculated sheet %q: %w", sh, err)
		}
		total += len(cells)
	}
	return Outcome{Backend: "office_suite", CellsEvaluated: total}, nil
}
