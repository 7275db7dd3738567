package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	"github.com/starford/ansuz/internal/index"
	pkgconfig "github.com/starford/ansuz/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunServe(ctx, cfg, cmd.Bool("check"))
}

func httpAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func backlinksAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := internal.NewRuntime(cfg)
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run")
	silent := cmd.Bool("silent")

	res, err := rt.Service.UpdateBacklinks(ctx, dryRun)
	if err != nil {
		return err
	}
	if !silent {
		verb := "updated"
		if dryRun {
			verb = "would update"
		}
		fmt.Printf("%s %d of %d files\n", verb, res.Updated, res.Total)
		for _, f := range res.Failed {
			fmt.Fprintf(os.Stderr, "failed: %s: %s\n", f.File, f.Error)
		}
	}
	return nil
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := internal.NewRuntime(cfg)
	if err != nil {
		return err
	}

	report, err := rt.Service.ValidateLinks(ctx)
	if err != nil {
		return err
	}
	printValidation(report.TotalFiles, report.TotalLinks, report.BrokenLinks)
	for _, e := range report.Errors {
		fmt.Fprintf(os.Stderr, "%s: [%s](%s): %s\n", e.File, e.LinkText, e.LinkPath, e.Message)
	}
	if report.BrokenLinks > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func orphanedAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := internal.NewRuntime(cfg)
	if err != nil {
		return err
	}

	res, err := rt.Service.OrphanedFiles(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("orphaned files: %d\n", res.Count)
	for _, o := range res.Files {
		fmt.Printf("  %s\n", o.File)
	}
	return nil
}

func reportAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := internal.NewRuntime(cfg)
	if err != nil {
		return err
	}

	report, err := rt.Service.ValidateLinks(ctx)
	if err != nil {
		return err
	}
	orphans, err := rt.Service.OrphanedFiles(ctx)
	if err != nil {
		return err
	}

	printValidation(report.TotalFiles, report.TotalLinks, report.BrokenLinks)
	for _, e := range report.Errors {
		fmt.Fprintf(os.Stderr, "%s: [%s](%s): %s\n", e.File, e.LinkText, e.LinkPath, e.Message)
	}
	fmt.Printf("orphaned files: %d\n", orphans.Count)
	for _, o := range orphans.Files {
		fmt.Printf("  %s\n", o.File)
	}
	if report.BrokenLinks > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func specIndexAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := internal.NewRuntime(cfg)
	if err != nil {
		return err
	}

	specs, err := index.BuildSpecIndexStrict(rt.Store, cfg.Docs.SpecsDir)
	if err != nil {
		return err
	}
	if err := specs.WriteArtifact(cfg.Docs.ArtifactPath); err != nil {
		return err
	}
	fmt.Printf("spec index written to %s: %d specs, %d errors\n",
		cfg.Docs.ArtifactPath, len(specs.Specs), len(specs.Errors))
	for _, w := range specs.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", w.File, w.Warning)
	}
	for _, e := range specs.Errors {
		fmt.Fprintf(os.Stderr, "%s: %v\n", e.File, e.Errors)
	}
	if len(specs.Errors) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func printValidation(files, links, broken int) {
	fmt.Printf("checked %d files, %d links, %d broken\n", files, links, broken)
}

func main() {
	cmd := &cli.Command{
		Name:  "ansuz",
		Usage: "Documentation indexing and link-graph engine with an MCP tool server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the MCP tool server on stdio",
				Action: serveAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "check",
						Usage: "Build indexes, print a summary, and exit",
					},
				},
			},
			{
				Name:   "http",
				Usage:  "Serve the REST API with SSE and a file watcher",
				Action: httpAction,
			},
			{
				Name:   "backlinks",
				Usage:  "Rewrite the generated backlinks section of every document",
				Action: backlinksAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report what would change without writing",
					},
					&cli.BoolFlag{
						Name:  "silent",
						Usage: "Suppress per-file output",
					},
				},
			},
			{
				Name:   "validate",
				Usage:  "Validate internal links and anchors (exit 1 on broken links)",
				Action: validateAction,
			},
			{
				Name:   "orphaned",
				Usage:  "List documents no other document links to",
				Action: orphanedAction,
			},
			{
				Name:   "report",
				Usage:  "Combined link validation and orphan report",
				Action: reportAction,
			},
			{
				Name:   "spec-index",
				Usage:  "Build the spec index and write its JSON artifact (exit 1 on validation errors)",
				Action: specIndexAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			slog.Error("application error", slog.String("error", msg))
		}
		os.Exit(1)
	}
}
