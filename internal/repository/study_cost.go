package repository

import (
	"database/sql"
	"time"

	"github.com/emilianohg/studycost/internal/models"
)

// StudyCostRepo keeps the latest report of each project in SQLite.
type StudyCostRepo struct {
	db *sql.DB
}

func NewStudyCostRepo(db *sql.DB) *StudyCostRepo {
	return &StudyCostRepo{db: db}
}

// ReplaceProject swaps every stored row of projectID for rows, atomically.
func (r *StudyCostRepo) ReplaceProject(projectID string, generatedAt time.Time, rows []models.StudyCost) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM study_costs WHERE project_id = ?", projectID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO study_costs (
			project_id, position, study_id, study_name, internal_name, published_at,
			total_available_places, estimated_completion_time, average_completion_time,
			intended_reward_per_hour, average_reward_per_hour,
			total_study_hours, total_study_rewards, total_study_cost, generated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		var published sql.NullString
		if !row.PublishedAt.IsZero() {
			published = sql.NullString{String: row.PublishedAt.UTC().Format(time.RFC3339), Valid: true}
		}
		var avgHours sql.NullFloat64
		if row.AverageCompletionHours != nil {
			avgHours = sql.NullFloat64{Float64: *row.AverageCompletionHours, Valid: true}
		}

		if _, err := stmt.Exec(
			projectID, i, row.StudyID, row.StudyName, row.InternalName, published,
			row.TotalAvailablePlaces, row.EstimatedCompletionHours, avgHours,
			row.IntendedRewardPerHour, row.AverageRewardPerHour,
			row.TotalStudyHours, row.TotalStudyRewards, row.TotalStudyCost, generatedAt.UTC(),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByProject returns the stored rows of projectID in report order.
func (r *StudyCostRepo) GetByProject(projectID string) ([]models.StudyCost, error) {
	rows, err := r.db.Query(`
		SELECT study_id, study_name, internal_name, published_at,
			total_available_places, estimated_completion_time, average_completion_time,
			intended_reward_per_hour, average_reward_per_hour,
			total_study_hours, total_study_rewards, total_study_cost
		FROM study_costs
		WHERE project_id = ?
		ORDER BY position ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var costs []models.StudyCost
	for rows.Next() {
		var c models.StudyCost
		var published sql.NullString
		var avgHours sql.NullFloat64

		if err := rows.Scan(
			&c.StudyID, &c.StudyName, &c.InternalName, &published,
			&c.TotalAvailablePlaces, &c.EstimatedCompletionHours, &avgHours,
			&c.IntendedRewardPerHour, &c.AverageRewardPerHour,
			&c.TotalStudyHours, &c.TotalStudyRewards, &c.TotalStudyCost,
		); err != nil {
			return nil, err
		}

		if published.Valid {
			t, err := time.Parse(time.RFC3339, published.String)
			if err != nil {
				return nil, err
			}
			c.PublishedAt = t
		}
		if avgHours.Valid {
			h := avgHours.Float64
			c.AverageCompletionHours = &h
		}

		costs = append(costs, c)
	}
	return costs, rows.Err()
}
