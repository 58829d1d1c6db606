package domain

import "time"

// GenerateRequest is the release input submitted for generation, either
// directly or stored as a draft before checkout.
type GenerateRequest struct {
	Company   Company `json:"company" validate:"required"`
	Headline  string  `json:"headline" validate:"required,max=200"`
	Summary   string  `json:"summary" validate:"required"`
	KeyPoints string  `json:"keyPoints"`
	Contact   string  `json:"contact" validate:"required"`
	Package   string  `json:"package" validate:"omitempty,oneof=starter professional enterprise"`
}

// Draft is release input parked before payment. ID has the form draft_<ulid>.
type Draft struct {
	ID        string          `json:"id"`
	Request   GenerateRequest `json:"draft"`
	CreatedAt time.Time       `json:"createdAt"`
	ExpiresAt time.Time       `json:"expiresAt"`
}
