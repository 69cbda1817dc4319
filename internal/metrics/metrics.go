// Package metrics derives the per-study cost and timing figures of a report row.
package metrics

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/emilianohg/studycost/internal/models"
)

const (
	minutesPerHour = 60
	secondsPerHour = 3600
)

var (
	decMinutesPerHour = decimal.NewFromInt(minutesPerHour)
	decSecondsPerHour = decimal.NewFromInt(secondsPerHour)
)

// Compute builds the report row for one study. It is pure: the same inputs
// always give the same row.
func Compute(study models.Study, submissions []models.Submission, charges models.Charges) models.StudyCost {
	estimatedHours := float64(study.EstimatedMinutes) / minutesPerHour

	row := models.StudyCost{
		StudyName:                study.Name,
		InternalName:             study.InternalName,
		StudyID:                  study.ID,
		PublishedAt:              study.PublishedAt,
		TotalAvailablePlaces:     study.TotalAvailablePlaces,
		EstimatedCompletionHours: estimatedHours,
		TotalStudyHours:          estimatedHours * float64(study.TotalAvailablePlaces),
		IntendedRewardPerHour:    intendedRewardPerHour(study),
	}

	var paid int64
	var completed []models.Submission
	for _, s := range submissions {
		paid += s.PaidCents()
		if s.IsCompleted() {
			completed = append(completed, s)
		}
	}

	row.AverageCompletionHours = medianHours(completed)
	row.AverageRewardPerHour = meanRewardPerHour(completed)

	// Bonuses can be paid on submissions that were later rejected or returned,
	// so rewards are summed over every submission.
	row.TotalStudyRewards = cents(paid)
	row.TotalStudyCost = row.TotalStudyRewards.Add(cents(charges.FeesCents + charges.TaxCents))

	return row
}

func intendedRewardPerHour(study models.Study) decimal.NullDecimal {
	if study.EstimatedMinutes <= 0 {
		return decimal.NullDecimal{}
	}
	rate := cents(study.RewardCents).
		Mul(decMinutesPerHour).
		Div(decimal.NewFromInt(int64(study.EstimatedMinutes)))
	return decimal.NewNullDecimal(rate)
}

// medianHours is the median time taken. Time-taken distributions are heavily
// right-skewed, so the median is reported rather than the mean.
func medianHours(completed []models.Submission) *float64 {
	if len(completed) == 0 {
		return nil
	}

	secs := make([]int64, 0, len(completed))
	for _, s := range completed {
		secs = append(secs, *s.TimeTakenSeconds)
	}
	slices.Sort(secs)

	mid := len(secs) / 2
	median := float64(secs[mid])
	if len(secs)%2 == 0 {
		median = float64(secs[mid-1]+secs[mid]) / 2
	}

	hours := median / secondsPerHour
	return &hours
}

// meanRewardPerHour averages each submission's own paid/taken rate. Submissions
// with no measurable time are left out of the mean.
func meanRewardPerHour(completed []models.Submission) decimal.NullDecimal {
	sum := decimal.Zero
	n := 0
	for _, s := range completed {
		if *s.TimeTakenSeconds <= 0 {
			continue
		}
		rate := cents(s.PaidCents()).
			Mul(decSecondsPerHour).
			Div(decimal.NewFromInt(*s.TimeTakenSeconds))
		sum = sum.Add(rate)
		n++
	}
	if n == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(int64(n))))
}

func cents(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}
