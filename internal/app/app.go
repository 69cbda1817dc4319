// Package app runs one cost report: resolve settings, fetch, compute, write.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/emilianohg/studycost/internal/apperr"
	"github.com/emilianohg/studycost/internal/config"
	"github.com/emilianohg/studycost/internal/db"
	"github.com/emilianohg/studycost/internal/metrics"
	"github.com/emilianohg/studycost/internal/models"
	"github.com/emilianohg/studycost/internal/prolific"
	"github.com/emilianohg/studycost/internal/prompt"
	"github.com/emilianohg/studycost/internal/report"
	"github.com/emilianohg/studycost/internal/repository"
)

// StudySource is the read side of the Prolific API the report needs.
type StudySource interface {
	GetProject(ctx context.Context, projectID string) (models.Project, error)
	ListStudies(ctx context.Context, projectID string) ([]models.Study, error)
	ListSubmissions(ctx context.Context, studyID string) ([]models.Submission, error)
	GetStudyCost(ctx context.Context, studyID string) (models.Charges, error)
}

type Options struct {
	ProjectID    string
	OutputPath   string
	DatabasePath string // overrides Config.DatabaseOutput
}

type Deps struct {
	Config *config.Config
	Getenv func(string) string
	Prompt prompt.ProjectIDProvider

	// NewSource builds the API client once settings are resolved.
	// Defaults to a prolific.Client configured from Config.
	NewSource func(cfg *config.Config, s config.Settings, logger *slog.Logger) (StudySource, error)

	Now    func() time.Time
	Logger *slog.Logger
}

type Result struct {
	ProjectTitle string
	OutputPath   string
	DatabasePath string
	Studies      int
}

// Run produces one report. Every study is fetched and computed before the CSV
// is written, so a failed run leaves no file behind.
func Run(ctx context.Context, opts Options, deps Deps) (*Result, error) {
	deps = withDefaults(deps)
	cfg := deps.Config
	logger := deps.Logger

	settings, err := config.Resolve(ctx, config.Inputs{ProjectID: opts.ProjectID, OutputPath: opts.OutputPath}, deps.Getenv, deps.Prompt)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	src, err := deps.NewSource(cfg, settings, logger)
	if err != nil {
		return nil, err
	}

	project, err := src.GetProject(ctx, settings.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve project %s: %w", settings.ProjectID, err)
	}

	outputPath := settings.OutputPath
	if outputPath == "" {
		outputPath = config.DefaultOutputPath(cfg.ReportsOutput, project.Title, project.ID, deps.Now().In(loc))
	}

	logger.Info("fetching studies", "project", project.Title, "project_id", project.ID)
	rows, err := Build(ctx, src, project.ID, logger)
	if err != nil {
		return nil, err
	}

	if err := (report.Writer{Location: loc}).WriteFile(outputPath, rows); err != nil {
		return nil, err
	}
	logger.Info("report written", "path", outputPath, "studies", len(rows))

	result := &Result{
		ProjectTitle: project.Title,
		OutputPath:   outputPath,
		Studies:      len(rows),
	}

	dbPath := opts.DatabasePath
	if dbPath == "" {
		dbPath = cfg.DatabaseOutput
	}
	if dbPath != "" {
		if err := exportToDatabase(dbPath, project.ID, deps.Now(), rows); err != nil {
			return nil, err
		}
		logger.Info("report stored", "database", dbPath)
		result.DatabasePath = dbPath
	}

	return result, nil
}

// Build fetches every study of the project in listing order and computes its
// row. One request is in flight at a time; the first error aborts the build.
func Build(ctx context.Context, src StudySource, projectID string, logger *slog.Logger) ([]models.StudyCost, error) {
	if logger == nil {
		logger = slog.Default()
	}

	studies, err := src.ListStudies(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("unable to list studies: %w", err)
	}

	rows := make([]models.StudyCost, 0, len(studies))
	for _, s := range studies {
		subs, err := src.ListSubmissions(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve submissions for %s (%s): %w", s.InternalName, s.ID, err)
		}
		charges, err := src.GetStudyCost(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve cost for %s (%s): %w", s.InternalName, s.ID, err)
		}

		rows = append(rows, metrics.Compute(s, subs, charges))
		logger.Info("study done", "internal_name", s.InternalName, "study_id", s.ID, "submissions", len(subs))
	}

	return rows, nil
}

func exportToDatabase(path, projectID string, generatedAt time.Time, rows []models.StudyCost) error {
	database, err := db.OpenAndMigrate(path)
	if err != nil {
		return fmt.Errorf("open report database: %w: %w", apperr.ErrIO, err)
	}
	defer database.Close()

	if err := repository.NewStudyCostRepo(database).ReplaceProject(projectID, generatedAt, rows); err != nil {
		return fmt.Errorf("store report: %w: %w", apperr.ErrIO, err)
	}
	return nil
}

func withDefaults(deps Deps) Deps {
	if deps.Config == nil {
		deps.Config = config.DefaultConfig()
	}
	if deps.Getenv == nil {
		deps.Getenv = os.Getenv
	}
	if deps.NewSource == nil {
		deps.NewSource = newProlificSource
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return deps
}

func newProlificSource(cfg *config.Config, s config.Settings, logger *slog.Logger) (StudySource, error) {
	client, err := prolific.NewClient(prolific.ClientConfig{
		BaseURL:     cfg.APIBaseURL,
		Token:       s.Token,
		Timeout:     cfg.Timeout(),
		PageSize:    cfg.PageSize,
		StudyStates: cfg.StudyStates,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
