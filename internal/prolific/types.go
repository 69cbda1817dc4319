package prolific

import (
	"time"

	"github.com/emilianohg/studycost/internal/models"
)

// Wire shapes of the Prolific public API. Only the fields the report uses are decoded.

type projectResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type links struct {
	Next struct {
		Href *string `json:"href"`
	} `json:"next"`
}

type page[T any] struct {
	Results []T   `json:"results"`
	Links   links `json:"_links"`
}

type studyResponse struct {
	ID                      string `json:"id"`
	Name                    string `json:"name"`
	InternalName            string `json:"internal_name"`
	PublishedAt             string `json:"published_at"`
	TotalAvailablePlaces    int    `json:"total_available_places"`
	EstimatedCompletionTime int    `json:"estimated_completion_time"`
	Reward                  int64  `json:"reward"`
	Status                  string `json:"status"`
}

type submissionResponse struct {
	ID            string  `json:"id"`
	ParticipantID string  `json:"participant_id"`
	Status        string  `json:"status"`
	TimeTaken     *int64  `json:"time_taken"`
	Reward        int64   `json:"reward"`
	BonusPayments []int64 `json:"bonus_payments"`
}

type amount struct {
	Amount int64 `json:"amount"`
}

type costSection struct {
	Rewards amount `json:"rewards"`
	Fees    amount `json:"fees"`
	Tax     amount `json:"tax"`
}

type costResponse struct {
	Rewards costSection `json:"rewards"`
	Bonuses costSection `json:"bonuses"`
}

func (p projectResponse) toModel(fallbackID string) models.Project {
	id := p.ID
	if id == "" {
		id = fallbackID
	}
	return models.Project{ID: id, Title: p.Title}
}

func (s studyResponse) toModel() (models.Study, error) {
	var published time.Time
	if s.PublishedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, s.PublishedAt)
		if err != nil {
			return models.Study{}, err
		}
		published = t
	}
	return models.Study{
		ID:                   s.ID,
		Name:                 s.Name,
		InternalName:         s.InternalName,
		PublishedAt:          published,
		TotalAvailablePlaces: s.TotalAvailablePlaces,
		EstimatedMinutes:     s.EstimatedCompletionTime,
		RewardCents:          s.Reward,
		Status:               s.Status,
	}, nil
}

func (s submissionResponse) toModel() models.Submission {
	return models.Submission{
		ID:               s.ID,
		ParticipantID:    s.ParticipantID,
		Status:           s.Status,
		TimeTakenSeconds: s.TimeTaken,
		RewardCents:      s.Reward,
		BonusCents:       s.BonusPayments,
	}
}

func (c costResponse) toModel() models.Charges {
	return models.Charges{
		FeesCents: c.Rewards.Fees.Amount + c.Bonuses.Fees.Amount,
		TaxCents:  c.Rewards.Tax.Amount + c.Bonuses.Tax.Amount,
	}
}
