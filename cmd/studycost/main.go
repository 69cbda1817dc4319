package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/emilianohg/studycost/internal/app"
	"github.com/emilianohg/studycost/internal/apperr"
	"github.com/emilianohg/studycost/internal/config"
	"github.com/emilianohg/studycost/internal/prompt"
)

// environment is what the commands read from and write to.
type environment struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
	Now    func() time.Time
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], environment{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.Getenv,
		Now:    time.Now,
	}))
}

// execute runs the command line and returns the process exit code.
func execute(ctx context.Context, args []string, env environment) int {
	code := apperr.ExitOK
	rootCmd := newRootCmd(env, &code)
	rootCmd.SetArgs(args)
	rootCmd.SetIn(env.Stdin)
	rootCmd.SetOut(env.Stdout)
	rootCmd.SetErr(env.Stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return apperr.ExitConfig
	}
	return code
}

func newRootCmd(env environment, code *int) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "studycost [project_id]",
		Short: "Prolific project cost report generator",
		Long: `Studycost fetches every study of a Prolific project, works out what each one
cost and how long participants actually took, and writes the figures to a CSV file.

The API token is read from the PROLIFIC_API_TOKEN environment variable.

Examples:
  studycost 64f1c0ffee                    # Report to ./cost_reports/
  studycost 64f1c0ffee -o costs.csv       # Report to a given file
  studycost                               # Ask for the project id
  studycost 64f1c0ffee --db reports.db    # Also store the rows in SQLite`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			*code = generate(cmd, args, env)
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect studycost settings",
	}

	configPathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		Run: func(cmd *cobra.Command, args []string) {
			path, err := configFilePath(cmd)
			if err != nil {
				*code = fail(cmd, env, err)
				return
			}
			fmt.Fprintln(env.Stdout, path)
		},
	}

	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as TOML",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				*code = fail(cmd, env, err)
				return
			}
			if err := toml.NewEncoder(env.Stdout).Encode(cfg); err != nil {
				*code = fail(cmd, env, err)
			}
		},
	}

	rootCmd.Flags().StringP("output", "o", "", "Path to the output CSV file")
	rootCmd.Flags().String("db", "", "Also store the report rows in this SQLite file")
	rootCmd.Flags().BoolP("verbose", "v", false, "Log every API request")
	rootCmd.PersistentFlags().String("config", "", "Settings file (default: ~/.studycost/config.toml)")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(configCmd)
	return rootCmd
}

func generate(cmd *cobra.Command, args []string, env environment) int {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(env.Stderr, verbose)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fail(cmd, env, err)
	}

	opts := app.Options{}
	if len(args) > 0 {
		opts.ProjectID = args[0]
	}
	opts.OutputPath, _ = cmd.Flags().GetString("output")
	opts.DatabasePath, _ = cmd.Flags().GetString("db")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := app.Run(ctx, opts, app.Deps{
		Config: cfg,
		Getenv: env.Getenv,
		Prompt: prompt.Interactive{In: env.Stdin, Out: env.Stdout},
		Now:    env.Now,
		Logger: logger,
	})
	if err != nil {
		return fail(cmd, env, err)
	}

	fmt.Fprintln(env.Stdout, prompt.SuccessStyle.Render(fmt.Sprintf("Wrote %d studies to %s", result.Studies, result.OutputPath)))
	if result.DatabasePath != "" {
		fmt.Fprintln(env.Stdout, prompt.DimStyle.Render(fmt.Sprintf("Stored rows in %s", result.DatabasePath)))
	}
	return apperr.ExitOK
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func configFilePath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path, nil
	}
	return config.ConfigPath()
}

// errorLogPath keeps errors.log beside the settings file in use.
func errorLogPath(cmd *cobra.Command) (string, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return filepath.Join(filepath.Dir(path), "errors.log"), nil
	}
	return config.ErrorLogPath()
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := configFilePath(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// fail records err and returns the exit code for it.
func fail(cmd *cobra.Command, env environment, err error) int {
	logError(cmd, env.Now(), err)
	fmt.Fprintln(env.Stderr, prompt.ErrorStyle.Render(fmt.Sprintf("Error: %v", err)))
	return apperr.ExitCode(err)
}

func logError(cmd *cobra.Command, now time.Time, err error) {
	logPath, pathErr := errorLogPath(cmd)
	if pathErr != nil {
		return
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return
	}

	f, fileErr := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		return
	}
	defer f.Close()

	fmt.Fprintf(f, "[%s] [%s] %v\n", now.Format(time.RFC3339), apperr.Kind(err), err)
}
