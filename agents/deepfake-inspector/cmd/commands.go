package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	deepfakeinspector "deepfake-inspector/agents/deepfake-inspector"
	"deepfake-inspector/agents/deepfake-inspector/dashboard"
	"deepfake-inspector/agents/deepfake-inspector/youtube"
	"deepfake-inspector/internal/models"
	"deepfake-inspector/shared/email"
	"deepfake-inspector/shared/scheduler"
	"deepfake-inspector/shared/storage"

	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = svc.config.Server.Addr
			}
			maxUpload := int64(svc.config.Server.MaxUploadMB) << 20
			server := dashboard.NewServer(svc.pipeline, svc.cache, svc.history, maxUpload)
			return server.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var filePath string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze [url]",
		Short: "Analyze one video by URL or local file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, closeSrc, err := sourceFromArgs(args, filePath)
			if err != nil {
				return err
			}
			defer closeSrc()

			svc, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}

			report, runErr := svc.pipeline.Run(cmd.Context(), src)
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else if report.Key != "" {
				fmt.Fprintln(out, deepfakeinspector.RenderText(report))
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Analyze a local video file instead of a URL")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func sourceFromArgs(args []string, filePath string) (models.MediaSource, func(), error) {
	switch {
	case filePath != "" && len(args) > 0:
		return models.MediaSource{}, func() {}, errors.New("pass either a URL or --file, not both")
	case filePath != "":
		f, err := os.Open(filePath)
		if err != nil {
			return models.MediaSource{}, func() {}, fmt.Errorf("failed to open %s: %w", filePath, err)
		}
		return models.MediaSource{Upload: f, Filename: filepath.Base(filePath)}, func() { f.Close() }, nil
	case len(args) == 1:
		return models.MediaSource{URL: args[0]}, func() {}, nil
	default:
		return models.MediaSource{}, func() {}, errors.New("a video URL or --file is required")
	}
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Analyze the configured watch list on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.services(cmd.Context())
			if err != nil {
				return err
			}

			var sender deepfakeinspector.ReportSender
			if svc.config.Email.Enabled {
				sender = email.NewSender(&svc.config.Email)
			}
			agent := deepfakeinspector.NewWatchAgent(svc.config, svc.pipeline, svc.history, sender)
			s := scheduler.New(svc.config, agent)

			if once {
				if err := agent.Initialize(); err != nil {
					return fmt.Errorf("failed to initialize agent: %w", err)
				}
				return s.RunOnce(cmd.Context())
			}
			return s.Start(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run a single pass and exit")
	return cmd
}

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the download cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			entries, err := storage.NewMediaCache(cfg.Cache.Dir).Entries()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), deepfakeinspector.RenderCacheTable(entries))
			return nil
		},
	})

	return cacheCmd
}

func newYouTubeAuthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "youtube-auth",
		Short: "Authorize YouTube metadata lookups with the OAuth device flow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return youtube.AuthorizeDevice(cmd.Context(), &cfg.YouTube, func(format string, a ...any) {
				fmt.Fprintf(out, format, a...)
			})
		},
	}
}
