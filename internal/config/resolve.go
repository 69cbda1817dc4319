package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/emilianohg/studycost/internal/apperr"
	"github.com/emilianohg/studycost/internal/prompt"
)

// Inputs are the values given on the command line; empty means omitted.
type Inputs struct {
	ProjectID  string
	OutputPath string
}

// Settings are the resolved per-run values. OutputPath stays empty when it
// has to be derived from the project title, which needs an API call.
type Settings struct {
	Token      string
	ProjectID  string
	OutputPath string
}

// Resolve checks the token before anything else, so a run without one never
// reaches the network or the prompt.
func Resolve(ctx context.Context, in Inputs, getenv func(string) string, ids prompt.ProjectIDProvider) (Settings, error) {
	token := strings.TrimSpace(getenv(TokenEnv))
	if token == "" {
		return Settings{}, fmt.Errorf("please set the %s environment variable: %w", TokenEnv, apperr.ErrConfig)
	}

	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		if ids == nil {
			return Settings{}, fmt.Errorf("no project id given: %w", apperr.ErrConfig)
		}
		id, err := ids.ProjectID(ctx)
		if err != nil {
			return Settings{}, err
		}
		projectID = strings.TrimSpace(id)
	}
	if projectID == "" {
		return Settings{}, fmt.Errorf("project id is empty: %w", apperr.ErrConfig)
	}

	return Settings{
		Token:      token,
		ProjectID:  projectID,
		OutputPath: strings.TrimSpace(in.OutputPath),
	}, nil
}

// DefaultOutputPath is "{dir}/{title} - Cost Report - {YYYY-MM-DD}.csv".
func DefaultOutputPath(dir, projectTitle, projectID string, today time.Time) string {
	name := SafeName(projectTitle)
	if name == "" {
		name = SafeName(projectID)
	}
	if name == "" {
		name = "project"
	}
	if dir == "" {
		dir = "."
	}
	file := fmt.Sprintf("%s - Cost Report - %s.csv", name, today.Format("2006-01-02"))
	return filepath.Join(dir, file)
}

// SafeName keeps letters, digits, spaces, dashes and underscores.
func SafeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), " ")
}
