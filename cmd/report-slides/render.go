package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/report-slides-app/pkg/cron"
	"github.com/yourusername/report-slides-app/pkg/export"
	"github.com/yourusername/report-slides-app/pkg/model"
	"github.com/yourusername/report-slides-app/pkg/preview"
)

func readReport(path string) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	if err := model.ValidateReport(&report); err != nil {
		return nil, err
	}
	return &report, nil
}

func newPreviewCmd(a *app) *cobra.Command {
	var (
		outDir      string
		onePerType  bool
		maxPreviews int
	)
	cmd := &cobra.Command{
		Use:   "preview <report.json>",
		Short: "Render slide previews of a report to PNG files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := readReport(args[0])
			if err != nil {
				return err
			}
			if _, err := a.templates.Load(); err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			batch := a.planner.GenerateAllPreviews(cmd.Context(), report, preview.BatchOptions{
				OnePerType:  &onePerType,
				MaxPreviews: &maxPreviews,
			})
			for _, p := range batch.Previews {
				name := filepath.Join(outDir, fmt.Sprintf("%02d-%s.png", p.SlideIndex, p.SlideType))
				if err := os.WriteFile(name, p.ImageData, 0o644); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(batch.Metadata)
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "previews", "output directory")
	cmd.Flags().BoolVar(&onePerType, "one-per-type", preview.DefaultOnePerType, "render only the first section of each type")
	cmd.Flags().IntVar(&maxPreviews, "max", preview.DefaultMaxPreviews, "maximum number of previews")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		out string
		cfg model.ExportConfig
	)
	cmd := &cobra.Command{
		Use:   "export <report.json>",
		Short: "Export every section of a report into a PDF deck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := readReport(args[0])
			if err != nil {
				return err
			}
			if _, err := a.templates.Load(); err != nil {
				return err
			}

			deck := export.BuildDeck(cmd.Context(), a.planner, report)
			if len(deck.Slides) == 0 {
				return fmt.Errorf("no slides could be rendered from %s", args[0])
			}
			if n := deck.Missing(); n > 0 {
				a.log.Warn("some sections could not be rendered", "missing", n, "total", deck.TotalSections)
			}

			b, err := export.NewBackend(cfg, a.log)
			if err != nil {
				return err
			}
			defer b.Close()

			data, err := b.Export(cmd.Context(), deck)
			if err != nil {
				return err
			}
			if out == "" {
				out = cron.Filename(report.Title, time.Now())
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d slides, %d bytes)\n", out, len(deck.Slides), len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: derived from the report title)")
	cmd.Flags().StringVar(&cfg.Backend, "backend", export.BackendPDF, "export backend: pdf, chromium or playwright")
	cmd.Flags().IntVar(&cfg.TimeoutMS, "timeout-ms", 60000, "export timeout in milliseconds")
	cmd.Flags().StringVar(&cfg.ChromiumPath, "chromium-path", "", "browser binary (default: auto-detect)")
	cmd.Flags().BoolVar(&cfg.Headless, "headless", true, "run the browser headless")
	cmd.Flags().BoolVar(&cfg.NoSandbox, "no-sandbox", false, "disable the browser sandbox")
	return cmd
}
