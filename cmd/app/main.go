package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/dailynote/internal"
	pkgconfig "github.com/starford/dailynote/pkg/config"
)

const defaultConfigPath = "config/config.yaml"

var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	path := cmd.String("config")
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(path, cmd.IsSet("config"), cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	if v := cmd.String("repo"); v != "" {
		cfg.Repo.Path = v
	}
	if v := cmd.String("document"); v != "" {
		cfg.Document.Path = v
	}
	if v := cmd.String("archive-dir"); v != "" {
		cfg.Archive.Dir = v
	}
	if cmd.IsSet("index") {
		cfg.Index.Path = cmd.String("index")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return cfg, nil
}

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

// readContent resolves --content or --content-file ("-" reads stdin).
func readContent(cmd *cli.Command) (string, error) {
	if cmd.IsSet("content") {
		return cmd.String("content"), nil
	}
	switch p := cmd.String("content-file"); p {
	case "":
		return "", ErrNoContent
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("read content file: %w", err)
		}
		return string(data), nil
	}
}

func publishAction(ctx context.Context, cmd *cli.Command) error {
	content, err := readContent(cmd)
	if err != nil {
		return err
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	res, err := internal.Publish(ctx, content, opts...)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "published %s\n", res.Branch)
	return nil
}

func updateAction(ctx context.Context, cmd *cli.Command) error {
	content, err := readContent(cmd)
	if err != nil {
		return err
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	res, err := internal.Update(ctx, content, opts...)
	if err != nil {
		return err
	}
	if res.Entry != nil {
		fmt.Fprintf(stdout, "archived %s\n", res.Entry.Path)
	}
	fmt.Fprintf(stdout, "updated %s\n", res.DocumentPath)
	return nil
}

func todayAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	body, err := internal.Today(ctx, opts...)
	if err != nil {
		return err
	}
	if body != "" {
		fmt.Fprintln(stdout, body)
	}
	return nil
}

func listAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	rows, total, err := internal.ListArchive(ctx, int(cmd.Int("limit")), int(cmd.Int("offset")), cmd.String("tag"), opts...)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return writeJSON(map[string]any{"entries": rows, "total": total})
	}
	for _, r := range rows {
		fmt.Fprintf(stdout, "%s\t%s\t%s\n", r.ID, r.Path, r.Title)
	}
	return nil
}

func showAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("%w: show takes exactly one entry id", ErrConfig)
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	body, err := internal.ReadEntry(ctx, cmd.Args().First(), opts...)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, body)
	return nil
}

func searchAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return fmt.Errorf("%w: search needs a query", ErrConfig)
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	hits, err := internal.SearchArchive(ctx, cmd.Args().First(), int(cmd.Int("limit")), opts...)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return writeJSON(hits)
	}
	for _, h := range hits {
		fmt.Fprintf(stdout, "%s\t%s\t%s\n", h.ID, h.Title, h.Snippet)
	}
	return nil
}

func reindexAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Reindex(ctx, opts...)
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Watch(ctx, opts...)
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func contentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "content",
			Usage: "New body for Today's Content",
		},
		&cli.StringFlag{
			Name:    "content-file",
			Aliases: []string{"f"},
			Usage:   "Read the new body from a file (- for stdin)",
		},
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "dailynote",
		Usage: "Archive and replace a repository's daily note, then land it through a pull request",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigPath,
				Value:       defaultConfigPath,
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:  "repo",
				Usage: "Repository working copy (overrides repo.path)",
			},
			&cli.StringFlag{
				Name:  "document",
				Usage: "Document path inside the repository (overrides document.path)",
			},
			&cli.StringFlag{
				Name:  "archive-dir",
				Usage: "Archive directory inside the repository (overrides archive.dir)",
			},
			&cli.StringFlag{
				Name:  "index",
				Usage: "Catalog database path; empty disables the catalog (overrides index.path)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "publish",
				Usage:  "Update the document, then branch, commit, push, open a pull request and enable auto-merge",
				Flags:  contentFlags(),
				Action: publishAction,
			},
			{
				Name:   "update",
				Usage:  "Archive Today's Content and replace it, without touching git",
				Flags:  contentFlags(),
				Action: updateAction,
			},
			{
				Name:   "today",
				Usage:  "Print the current Today's Content",
				Action: todayAction,
			},
			{
				Name:  "archive",
				Usage: "Inspect archived entries",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List archived entries, newest first",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 50},
							&cli.IntFlag{Name: "offset"},
							&cli.StringFlag{Name: "tag", Usage: "Only entries with this tag"},
							&cli.BoolFlag{Name: "json"},
						},
						Action: listAction,
					},
					{
						Name:      "show",
						Usage:     "Print one archived entry",
						ArgsUsage: "<id>",
						Action:    showAction,
					},
					{
						Name:      "search",
						Usage:     "Full-text search over archived entries",
						ArgsUsage: "<query>",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20},
							&cli.BoolFlag{Name: "json"},
						},
						Action: searchAction,
					},
					{
						Name:   "reindex",
						Usage:  "Rebuild the catalog from the archive directory",
						Action: reindexAction,
					},
				},
			},
			{
				Name:   "watch",
				Usage:  "Publish the inbox file whenever it is written",
				Action: watchAction,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcpAction,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(exitCodeFor(err))
	}
}
