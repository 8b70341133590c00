package main

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/nerrad567/tavernlight-core/internal/catalog"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/logging"
)

// ─── validate ──────────────────────────────────────────────────────

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the config, the scene catalog and every referenced sound file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrinter(cmd.OutOrStdout(), opts.noColor)
			return validate(p, opts, strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "treat missing sound files as errors")
	return cmd
}

func validate(p *printer, opts *globalOptions, strict bool) error {
	cfg, path, err := loadConfig(opts)
	if err != nil {
		p.fail("config %s", path)
		return err
	}
	p.ok("config %s", path)

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		p.fail("catalog %s", cfg.Catalog.Path)
		return err
	}
	p.ok("catalog %s: %d scenes, %d triggers", cfg.Catalog.Path, len(cat.Scenes()), len(cat.Triggers()))

	missing := checkSources(p, cat, newResolver(cfg.Audio), cfg.Audio.LibraryDir)
	if missing == 0 {
		p.ok("all sound files present")
		return nil
	}
	if strict {
		return fmt.Errorf("%d sound files missing", missing)
	}
	p.dim("%d sound files missing (playback of those sources will be skipped)", missing)
	return nil
}

// checkSources reports every local sound file referenced by the catalog
// that does not exist, and returns how many were missing.
func checkSources(p *printer, cat *catalog.Catalog, resolver catalog.Resolver, root string) int {
	missing := 0
	check := func(owner, src string) {
		if catalog.IsURL(src) {
			return
		}
		full := src
		if !filepath.IsAbs(full) && root != "" {
			full = filepath.Join(root, src)
		}
		if _, err := os.Stat(full); err != nil {
			p.warn("%s: %s not found", owner, src)
			missing++
		}
	}

	for _, sc := range cat.Scenes() {
		if sc.Audio == nil {
			continue
		}
		owner := "scene " + sc.ID
		if !sc.Audio.Music.IsZero() {
			tracks, _, err := resolver.Resolve(sc.Audio.Music)
			if err != nil {
				p.warn("%s: music: %v", owner, err)
				missing++
			}
			for _, t := range tracks {
				check(owner, t)
			}
		}
		for _, a := range sc.Audio.Ambient {
			check(owner, a)
		}
	}

	for _, tr := range cat.Triggers() {
		owner := "trigger " + tr.ID
		for _, ev := range tr.Sequence {
			if ev.Audio == nil {
				continue
			}
			if ev.Audio.Trigger != "" {
				check(owner, ev.Audio.Trigger)
			}
			for _, a := range ev.Audio.Ambient {
				check(owner, a)
			}
		}
	}
	return missing
}

// ─── probe ─────────────────────────────────────────────────────────

// errUnreachable is returned by probe when an enabled integration did not answer.
var errUnreachable = errors.New("lighting integration unreachable")

func newProbeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check that WLED and Home Assistant answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			log := logging.New(cfg.Logging, version)
			p := newPrinter(cmd.OutOrStdout(), opts.noColor)

			conn := newLights(cfg.Lighting, log).Initialize(cmd.Context())

			p.heading("Lighting")
			failed := false
			if conn.WLEDEnabled {
				name := conn.WLEDName
				if name == "" {
					name = cfg.Lighting.WLED.Host
				}
				p.status(conn.WLED, "WLED %s", name)
				failed = failed || !conn.WLED
			} else {
				p.dim("  WLED disabled")
			}
			if conn.HubEnabled {
				p.status(conn.Hub, "Home Assistant %s", cfg.Lighting.HomeAssistant.Host)
				failed = failed || !conn.Hub
			} else {
				p.dim("  Home Assistant disabled")
			}

			if failed {
				return errUnreachable
			}
			return nil
		},
	}
}

// ─── library ───────────────────────────────────────────────────────

func newLibraryCmd(opts *globalOptions) *cobra.Command {
	var (
		dir        string
		writeIndex string
	)
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Index the music library (<category>/<collection>/<track>)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				cfg, _, err := loadConfig(opts)
				if err != nil {
					return err
				}
				dir = cfg.Audio.LibraryDir
			}
			if dir == "" {
				return usageError{msg: "no library directory: pass --dir or set audio.library_dir"}
			}
			return library(newPrinter(cmd.OutOrStdout(), opts.noColor), dir, writeIndex)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "library root (default audio.library_dir)")
	cmd.Flags().StringVarP(&writeIndex, "write", "w", "", "also write the index as JSON to this file (e.g. music-index.json)")
	return cmd
}

func library(p *printer, dir, writeIndex string) error {
	idx, err := catalog.ScanLibrary(dir)
	if err != nil {
		return err
	}

	for _, catName := range idx.Categories() {
		p.heading("%s", catName)
		cols := idx[catName]
		if len(cols) == 0 {
			p.dim("  (empty)")
			continue
		}
		for _, col := range slices.Sorted(maps.Keys(cols)) {
			p.item("%-24s %d tracks", col, len(cols[col]))
		}
	}

	cats, cols, tracks := idx.Counts()
	writeSummary(p.w, cats, cols, tracks)

	if writeIndex != "" {
		if err := idx.WriteIndex(writeIndex); err != nil {
			return err
		}
		p.ok("index written to %s", writeIndex)
	}
	return nil
}

func writeSummary(w io.Writer, categories, collections, tracks int) {
	fmt.Fprintf(w, "\n%d categories, %d collections, %d tracks\n", categories, collections, tracks)
}
