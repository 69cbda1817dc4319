// Package report renders study cost rows as CSV.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emilianohg/studycost/internal/apperr"
	"github.com/emilianohg/studycost/internal/models"
)

// Header is the fixed column order of every report.
var Header = []string{
	"study_name",
	"internal_name",
	"study_id",
	"published_at",
	"total_available_places",
	"estimated_completion_time",
	"average_completion_time",
	"intended_reward_per_hour",
	"average_reward_per_hour",
	"total_study_hours",
	"total_study_rewards",
	"total_study_cost",
}

const (
	hoursPlaces = 5
	moneyPlaces = 2
	dateLayout  = "2006-01-02"
)

type Writer struct {
	// Location the published date is rendered in; UTC when nil.
	Location *time.Location
}

// Render returns the whole CSV document, header included.
func (w Writer) Render(rows []models.StudyCost) ([]byte, error) {
	buf := &bytes.Buffer{}
	cw := csv.NewWriter(buf)
	if err := cw.Write(Header); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := cw.Write(w.record(r)); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

// WriteFile renders rows and replaces path with the result. The document is
// written to a temporary file next to path and renamed into place, so readers
// never observe a half-written report.
func (w Writer) WriteFile(path string, rows []models.StudyCost) error {
	data, err := w.Render(rows)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report directory: %w: %w", apperr.ErrIO, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create report file: %w: %w", apperr.ErrIO, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w: %w", apperr.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write report: %w: %w", apperr.ErrIO, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("write report: %w: %w", apperr.ErrIO, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("move report into place: %w: %w", apperr.ErrIO, err)
	}
	return nil
}

func (w Writer) record(r models.StudyCost) []string {
	return []string{
		r.StudyName,
		r.InternalName,
		r.StudyID,
		w.date(r.PublishedAt),
		strconv.Itoa(r.TotalAvailablePlaces),
		hours(r.EstimatedCompletionHours),
		optionalHours(r.AverageCompletionHours),
		optionalMoney(r.IntendedRewardPerHour),
		optionalMoney(r.AverageRewardPerHour),
		hours(r.TotalStudyHours),
		r.TotalStudyRewards.StringFixed(moneyPlaces),
		r.TotalStudyCost.StringFixed(moneyPlaces),
	}
}

func (w Writer) date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateLayout)
}

func hours(h float64) string {
	return decimal.NewFromFloat(h).StringFixed(hoursPlaces)
}

func optionalHours(h *float64) string {
	if h == nil {
		return ""
	}
	return hours(*h)
}

func optionalMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(moneyPlaces)
}
