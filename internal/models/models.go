package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Project struct {
	ID    string
	Title string
}

type Study struct {
	ID                   string
	Name                 string
	InternalName         string
	PublishedAt          time.Time // zero when the study was never published
	TotalAvailablePlaces int
	EstimatedMinutes     int
	RewardCents          int64 // per submission
	Status               string
}

type Submission struct {
	ID               string
	ParticipantID    string
	Status           string
	TimeTakenSeconds *int64 // nil while the participant has not finished
	RewardCents      int64
	BonusCents       []int64
}

// IsCompleted reports whether the submission counts toward time and rate averages.
func (s Submission) IsCompleted() bool {
	switch strings.ToUpper(strings.TrimSpace(s.Status)) {
	case "APPROVED", "COMPLETED":
		return s.TimeTakenSeconds != nil
	}
	return false
}

// PaidCents is the base reward plus every bonus paid on the submission.
func (s Submission) PaidCents() int64 {
	total := s.RewardCents
	for _, b := range s.BonusCents {
		total += b
	}
	return total
}

// Charges are the platform fees and taxes billed for a study, in cents.
type Charges struct {
	FeesCents int64
	TaxCents  int64
}

type StudyCost struct {
	StudyName    string
	InternalName string
	StudyID      string
	PublishedAt  time.Time

	TotalAvailablePlaces int

	EstimatedCompletionHours float64
	AverageCompletionHours   *float64 // median of completed submissions; nil when none

	IntendedRewardPerHour decimal.NullDecimal
	AverageRewardPerHour  decimal.NullDecimal

	TotalStudyHours   float64
	TotalStudyRewards decimal.Decimal
	TotalStudyCost    decimal.Decimal
}
