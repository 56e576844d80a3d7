// Command enginectl is a minimal demonstration CLI for internal/engine's
// composition root. It wires one EngineContext per run and offers two
// subcommands against a workbook path given on the command line:
// recalc-demo drives a single open -> fork -> edit -> recalculate cycle and
// prints the recalc outcome as JSON; list-regions prints a sheet's detected
// regions as a paginated JSON page. It is not the full tool surface; that
// lives behind an MCP transport, not here.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	zlog "github.com/rs/zerolog/log"
	"github.com/vinodismyname/mcpxcel/internal/diff"
	"github.com/vinodismyname/mcpxcel/internal/engine"
	"github.com/vinodismyname/mcpxcel/internal/envelope"
	"github.com/vinodismyname/mcpxcel/internal/forks"
	"github.com/vinodismyname/mcpxcel/internal/regions"
	"github.com/vinodismyname/mcpxcel/internal/shaping"
	"github.com/vinodismyname/mcpxcel/pkg/version"
)

const usage = "usage: enginectl <recalc-demo|list-regions> [flags] <workbook-path>"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "recalc-demo":
		recalcDemo(os.Args[2:])
	case "list-regions":
		listRegions(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "enginectl: unknown subcommand %q\n", os.Args[1])
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

// recalcDemo drives a single open -> fork -> edit -> recalculate cycle
// against a workbook path, printing the recalc outcome as JSON.
func recalcDemo(args []string) {
	fs := flag.NewFlagSet("recalc-demo", flag.ExitOnError)
	var (
		allowedDirs string
		sheet       string
		edits       string
	)
	fs.StringVar(&allowedDirs, "allowed-dirs", "", "comma-separated allow-list directories (required)")
	fs.StringVar(&sheet, "sheet", "Sheet1", "sheet to recalculate")
	fs.StringVar(&edits, "edits", "", "comma-separated shorthand edits, e.g. B2=500,B3=600")
	var (
		profile string
		model   string
	)
	fs.StringVar(&profile, "profile", "verbose", "output profile: verbose or token_dense")
	fs.StringVar(&model, "model", "gpt-4", "model name consulted for the token_dense sizing hint")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	path := fs.Arg(0)

	logger := zlog.With().Str("service", "enginectl").Str("version", version.Version()).Logger()

	dirs := splitNonEmpty(allowedDirs)
	if len(dirs) == 0 {
		fmt.Fprintln(os.Stderr, "enginectl: --allowed-dirs is required")
		os.Exit(2)
	}

	eng, err := engine.New(engine.Config{
		AllowedDirectories: dirs,
		AllowedExtensions:  []string{".xlsx", ".xlsm", ".xltx", ".xltm"},
		Logger:             logger,
		OutputProfile:      shaping.Profile(profile),
		MaxResponseBytes:   1 << 20,
		MaxCells:           50_000,
		MaxItems:           10_000,
	})
	if err != nil {
		logger.Error().Err(err).Msg("engine: failed to initialize")
		os.Exit(1)
	}
	defer func() { _ = eng.Close(context.Background()) }()

	ctx := context.Background()

	workbookID, canonical, err := eng.Repository.Open(ctx, path)
	if err != nil {
		logger.Error().Err(err).Msg("repository: open failed")
		os.Exit(1)
	}
	handle, _ := eng.Repository.Handle(workbookID)

	fork, err := eng.Forks.Create("enginectl-session", workbookID, handle)
	if err != nil {
		logger.Error().Err(err).Msg("forks: create failed")
		os.Exit(1)
	}

	env := envelope.New(30*time.Second, eng.Shaper.MaxPayloadBytes)
	result, err := env.Call(ctx, func(callCtx context.Context) (any, []envelope.Warning, error) {
		if rawEdits := splitNonEmpty(edits); len(rawEdits) > 0 {
			batch := make([]forks.RawEdit, len(rawEdits))
			for i, shorthand := range rawEdits {
				batch[i] = forks.RawEdit{Shorthand: shorthand}
			}
			if _, err := fork.ApplyEdits(sheet, batch, forks.OriginUser, time.Now); err != nil {
				return nil, nil, err
			}
		}

		outcome, err := eng.Recalc.Recalculate(callCtx, fork, sheet)
		if err != nil {
			return nil, nil, err
		}
		return outcome, envelope.WithForkWarnings(fork, nil), nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("recalc-demo: operation failed")
		os.Exit(1)
	}

	unlockFork := fork.Lock()
	changeset, err := diff.GetChangeset(handle, fork.Handle(), diff.Filters{Cells: true, Limit: 100})
	detected, regionsErr := eng.Regions(handle, sheet)
	unlockFork()
	if err != nil {
		logger.Error().Err(err).Msg("diff: changeset failed")
		os.Exit(1)
	}
	if regionsErr != nil {
		logger.Error().Err(regionsErr).Msg("regions: detect failed")
		os.Exit(1)
	}

	warnings := envelope.WithRegionWarnings(detected, 0.5, result.Warnings)
	warnings = envelope.ShapeWarnings(eng.Shaper, warnings)

	out := map[string]any{
		"workbook_path":    canonical,
		"fork_id":          fork.ID,
		"outcome":          result.Payload,
		"warnings":         warnings,
		"changeset":        changeset,
		"regions":          detected,
		"token_budget_hint": eng.Shaper.TokenBudgetHint(model),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error().Err(err).Msg("encode output failed")
		os.Exit(1)
	}
}

// listRegions runs the region-detection pipeline (Component D) against a
// single sheet and prints the detected regions as a paginated, shaped
// page (Component I), demonstrating both outside their own package tests.
func listRegions(args []string) {
	fs := flag.NewFlagSet("list-regions", flag.ExitOnError)
	var (
		allowedDirs string
		sheet       string
		profile     string
		limit       int
		offset      int
		pathMap     string
	)
	fs.StringVar(&allowedDirs, "allowed-dirs", "", "comma-separated allow-list directories (required)")
	fs.StringVar(&sheet, "sheet", "Sheet1", "sheet to scan for regions")
	fs.StringVar(&profile, "profile", "verbose", "output profile: verbose or token_dense")
	fs.IntVar(&limit, "limit", 50, "max regions per page")
	fs.IntVar(&offset, "offset", 0, "page offset")
	fs.StringVar(&pathMap, "path-map", "", "comma-separated host=container path mappings")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	path := fs.Arg(0)

	logger := zlog.With().Str("service", "enginectl").Str("version", version.Version()).Logger()

	dirs := splitNonEmpty(allowedDirs)
	if len(dirs) == 0 {
		fmt.Fprintln(os.Stderr, "enginectl: --allowed-dirs is required")
		os.Exit(2)
	}

	eng, err := engine.New(engine.Config{
		AllowedDirectories: dirs,
		AllowedExtensions:  []string{".xlsx", ".xlsm", ".xltx", ".xltm"},
		Logger:             logger,
		OutputProfile:      shaping.Profile(profile),
		MaxResponseBytes:   1 << 20,
		MaxCells:           50_000,
		MaxItems:           10_000,
		RegionScan:         regions.Options{MaxCells: 10_000},
	})
	if err != nil {
		logger.Error().Err(err).Msg("engine: failed to initialize")
		os.Exit(1)
	}
	defer func() { _ = eng.Close(context.Background()) }()

	ctx := context.Background()
	workbookID, canonical, err := eng.Repository.Open(ctx, path)
	if err != nil {
		logger.Error().Err(err).Msg("repository: open failed")
		os.Exit(1)
	}
	handle, _ := eng.Repository.Handle(workbookID)

	env := envelope.New(30*time.Second, eng.Shaper.MaxPayloadBytes)
	result, err := env.Call(ctx, func(context.Context) (any, []envelope.Warning, error) {
		detected, err := eng.Regions(handle, sheet)
		if err != nil {
			return nil, nil, err
		}
		return detected, envelope.WithRegionWarnings(detected, 0.5, nil), nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("list-regions: operation failed")
		os.Exit(1)
	}
	detected := result.Payload.([]regions.Region)

	page, nextOffset, err := shaping.Paginate(detected, eng.Shaper.ClampItems(limit), offset, 0, func(r regions.Region) ([]byte, error) {
		return json.Marshal(r)
	})
	if err != nil {
		logger.Error().Err(err).Msg("shaping: paginate failed")
		os.Exit(1)
	}

	remappedPath, remapped := canonical, false
	if mapping := parsePathMap(pathMap); len(mapping) > 0 {
		mapper := shaping.PathMapper{HostToContainer: mapping}
		remappedPath, remapped = mapper.Remap(canonical)
	}
	warnings := envelope.WithPathRemapWarning(remapped, canonical, remappedPath, result.Warnings)
	warnings = envelope.ShapeWarnings(eng.Shaper, warnings)

	out := map[string]any{
		"workbook_path": canonical,
		"sheet":         sheet,
		"regions":       page,
		"next_offset":   nextOffset,
		"warnings":      warnings,
	}
	if remapped {
		out["client_path"] = remappedPath
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error().Err(err).Msg("encode output failed")
		os.Exit(1)
	}
}

func parsePathMap(s string) map[string]string {
	out := map[string]string{}
	for _, pair := range splitNonEmpty(s) {
		host, container, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(host)] = strings.TrimSpace(container)
	}
	return out
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
