package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/aday913/notion-letterboxd-sync/internal/shared"
)

// SetupConfig writes a commented config.toml from the embedded template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("%w: %s already exists (use --force to overwrite)", shared.ErrInvalidArgument, configPath)
	} else if err == nil {
		if err := os.Remove(configPath); err != nil {
			return fmt.Errorf("failed to replace config file: %w", err)
		}
	}

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", configPath)

	r.writePlain("✓ Configuration written to %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set %s, %s and %s in %s or a .env file\n",
		shared.EnvNotionAPIKey, shared.EnvNotionDatabaseID, shared.EnvLetterboxdUser, configPath)
	r.writePlain("2. Share the Notion database with your integration\n")
	r.writePlain("3. Run 'boxdsync sync --dry-run' to preview the first sync\n")
	return nil
}

// SetupDatabase creates the run history database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("initializing run history", "path", config.History.Path)
	repo, closeHistory, err := r.openHistory(config)
	defer closeHistory()
	if err != nil {
		return err
	}

	latest, err := repo.Latest()
	switch {
	case isMissingRun(err):
		r.logger.Infof("setup complete for database: %v", config.History.Path)
	case err != nil:
		return fmt.Errorf("failed to read run history: %w", err)
	default:
		r.logger.Info("setup complete", "path", config.History.Path, "latest_run", latest.Sequence())
	}

	if !config.History.Enabled {
		r.logger.Warn("history.enabled is false; sync runs will not be recorded")
	}
	return r.writePlain("✓ Run history ready at %s\n", config.History.Path)
}

// SetupLetterboxd stores browser headers captured with "Copy as cURL" so page
// requests look like the user's own browser.
func (r *Runner) SetupLetterboxd(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var headers *shared.BrowserHeaders
	var err error

	if curlFile != "" {
		headers, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		headers, err = shared.ParseCurlCommand(curlCmd)
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	r.logger.Debug("captured headers", "keys", headers.Keys(), "cookie", headers.Cookie != "")

	outputPath := cmd.String("output")
	if outputPath == "" {
		if config, err := r.loadConfig(cmd); err == nil && config.Letterboxd.HeadersPath != "" {
			outputPath = config.Letterboxd.HeadersPath
		}
	}
	if outputPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		outputPath = filepath.Join(homeDir, ".boxdsync", "letterboxd.json")
	}

	if err := headers.Save(outputPath); err != nil {
		return err
	}
	r.logger.Info("browser headers saved", "path", outputPath)

	r.writePlain("✓ Captured %d headers", len(headers.Headers))
	if headers.Cookie != "" {
		r.writePlain(" and cookies")
	}
	r.writePlain("\nHeaders saved to: %s\n", outputPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Update config.toml with: letterboxd.headers_path = \"%s\"\n", outputPath)
	r.writePlain("2. Run 'boxdsync watchlist' to test access\n")
	return nil
}

// SetupCheck reports which required settings are present without contacting anything.
func (r *Runner) SetupCheck(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	check := func(name string, set bool) {
		if set {
			r.writePlain("%s %s\n", r.palette.OK("✓"), name)
		} else {
			r.writePlain("%s %s\n", r.palette.Err("✗"), name)
		}
	}
	check(shared.EnvNotionAPIKey, strings.TrimSpace(config.Notion.APIKey) != "")
	check(shared.EnvNotionDatabaseID, strings.TrimSpace(config.Notion.DatabaseID) != "")
	check(shared.EnvLetterboxdUser, strings.TrimSpace(config.Letterboxd.Username) != "")

	if config.Letterboxd.HeadersPath != "" {
		_, err := shared.LoadBrowserHeaders(config.Letterboxd.HeadersPath)
		check("letterboxd.headers_path", err == nil)
	}

	if err := config.Validate(); err != nil {
		if errors.Is(err, shared.ErrMissingConfig) {
			return err
		}
		return fmt.Errorf("configuration is invalid: %w", err)
	}
	return r.writePlainln("%s", r.palette.OK("Configuration looks good."))
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create configuration, history database and Letterboxd headers",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml template",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:    "database",
				Aliases: []string{"db"},
				Usage:   "Initialize the run history database and run migrations",
				Action:  r.SetupDatabase,
			},
			{
				Name:  "letterboxd",
				Usage: "Capture browser headers from a cURL command",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command copied from the browser's network tab",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "File containing the cURL command",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Where to save the headers (defaults to letterboxd.headers_path or ~/.boxdsync/letterboxd.json)",
					},
				},
				Action: r.SetupLetterboxd,
			},
			{
				Name:   "check",
				Usage:  "Report missing or invalid settings",
				Action: r.SetupCheck,
			},
		},
	}
}
