package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emilianohg/studycost/internal/db"
	"github.com/emilianohg/studycost/internal/models"
)

func openTestDB(t *testing.T) *StudyCostRepo {
	t.Helper()
	database, err := db.OpenAndMigrate(filepath.Join(t.TempDir(), "reports.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStudyCostRepo(database)
}

func TestReplaceProjectRoundTrip(t *testing.T) {
	repo := openTestDB(t)
	median := 0.5
	rows := []models.StudyCost{
		{
			StudyID:                  "s2",
			StudyName:                "Second listed first",
			InternalName:             "two",
			PublishedAt:              time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
			TotalAvailablePlaces:     10,
			EstimatedCompletionHours: 0.5,
			AverageCompletionHours:   &median,
			IntendedRewardPerHour:    decimal.NewNullDecimal(decimal.NewFromInt(10)),
			AverageRewardPerHour:     decimal.NewNullDecimal(decimal.RequireFromString("10.25")),
			TotalStudyHours:          5,
			TotalStudyRewards:        decimal.RequireFromString("40"),
			TotalStudyCost:           decimal.RequireFromString("56.5"),
		},
		{
			StudyID:           "s1",
			StudyName:         "Never published",
			TotalStudyRewards: decimal.Zero,
			TotalStudyCost:    decimal.Zero,
		},
	}

	if err := repo.ReplaceProject("p1", time.Now(), rows); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := repo.GetByProject("p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[0].StudyID != "s2" || got[1].StudyID != "s1" {
		t.Fatalf("rows not stored in report order: %+v", got)
	}
	if !got[0].PublishedAt.Equal(rows[0].PublishedAt) {
		t.Fatalf("published_at = %v", got[0].PublishedAt)
	}
	if got[0].AverageCompletionHours == nil || *got[0].AverageCompletionHours != 0.5 {
		t.Fatalf("average hours = %v", got[0].AverageCompletionHours)
	}
	if !got[0].TotalStudyCost.Equal(decimal.RequireFromString("56.5")) {
		t.Fatalf("total cost = %s", got[0].TotalStudyCost)
	}
	if !got[0].AverageRewardPerHour.Valid || got[0].AverageRewardPerHour.Decimal.StringFixed(2) != "10.25" {
		t.Fatalf("average rate = %v", got[0].AverageRewardPerHour)
	}
	if got[1].AverageCompletionHours != nil || got[1].IntendedRewardPerHour.Valid || !got[1].PublishedAt.IsZero() {
		t.Fatalf("undefined values should stay undefined: %+v", got[1])
	}
}

func TestReplaceProjectDropsPreviousRows(t *testing.T) {
	repo := openTestDB(t)
	first := []models.StudyCost{{StudyID: "a"}, {StudyID: "b"}}
	second := []models.StudyCost{{StudyID: "c"}}

	if err := repo.ReplaceProject("p1", time.Now(), first); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if err := repo.ReplaceProject("p2", time.Now(), first); err != nil {
		t.Fatalf("other project: %v", err)
	}
	if err := repo.ReplaceProject("p1", time.Now(), second); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	got, err := repo.GetByProject("p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].StudyID != "c" {
		t.Fatalf("p1 rows = %+v", got)
	}

	other, err := repo.GetByProject("p2")
	if err != nil {
		t.Fatalf("get p2: %v", err)
	}
	if len(other) != 2 {
		t.Fatalf("other projects must be untouched, got %d rows", len(other))
	}
}

func TestReplaceProjectKeepsRepeatedStudies(t *testing.T) {
	repo := openTestDB(t)
	rows := []models.StudyCost{{StudyID: "s1", InternalName: "first"}, {StudyID: "s1", InternalName: "again"}}

	if err := repo.ReplaceProject("p1", time.Now(), rows); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, err := repo.GetByProject("p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[0].InternalName != "first" || got[1].InternalName != "again" {
		t.Fatalf("rows = %+v", got)
	}
}
