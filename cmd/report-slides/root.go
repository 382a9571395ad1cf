package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yourusername/report-slides-app/pkg/config"
	"github.com/yourusername/report-slides-app/pkg/logger"
	"github.com/yourusername/report-slides-app/pkg/preview"
	"github.com/yourusername/report-slides-app/pkg/slides"
	"github.com/yourusername/report-slides-app/pkg/templateconfig"
)

const pluginID = "report-slides-app"

// app holds the pieces every command needs.
type app struct {
	cfg        config.Config
	log        *logger.Logger
	templates  *templateconfig.Store
	dispatcher *preview.Dispatcher
	planner    *preview.Planner
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var templatePath, logMode string

	root := &cobra.Command{
		Use:           "report-slides",
		Short:         "Render report sections into slide previews and exported decks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			boot, err := logger.New(logMode)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			a.cfg = config.Load(boot)
			if cmd.Flags().Changed("log-mode") {
				a.cfg.LogMode = logMode
			}
			if cmd.Flags().Changed("template-config") {
				a.cfg.TemplateConfigPath = templatePath
			}
			if a.cfg.LogMode != logMode {
				if boot, err = logger.New(a.cfg.LogMode); err != nil {
					return fmt.Errorf("failed to create logger: %w", err)
				}
			}
			a.log = boot
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&templatePath, "template-config", "", "template configuration file (default: built-in)")
	root.PersistentFlags().StringVar(&logMode, "log-mode", "dev", "log mode: dev or prod")

	root.AddCommand(
		newServeCmd(a),
		newPluginCmd(a),
		newPreviewCmd(a),
		newExportCmd(a),
	)
	return root
}

// init wires the template store, renderers, dispatcher and planner.
func (a *app) init() error {
	source := templateconfig.DefaultSource()
	if a.cfg.TemplateConfigPath != "" {
		source = templateconfig.FileSource(filepath.Clean(a.cfg.TemplateConfigPath))
	}
	a.templates = templateconfig.NewStore(source, a.log)

	set, err := slides.New(a.templates, slides.NewHTTPAssetFetcher(a.cfg.AssetTimeout), a.log)
	if err != nil {
		return fmt.Errorf("failed to create slide renderers: %w", err)
	}
	a.dispatcher = preview.NewDispatcher(set.Renderers(), a.log)
	a.planner = preview.NewPlanner(a.dispatcher, a.log)
	return nil
}
