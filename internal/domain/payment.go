package domain

import "time"

// Payment is a completed checkout session recorded from the payment webhook.
// Claimed flips once when the session is exchanged for a publish bearer.
type Payment struct {
	SessionID    string     `json:"sessionId"`
	Email        string     `json:"email"`
	Package      string     `json:"package"`
	AmountTotal  int64      `json:"amountTotal"`
	Currency     string     `json:"currency"`
	DraftID      string     `json:"draftId,omitempty"`
	DiscountCode string     `json:"discountCode,omitempty"`
	PaidAt       time.Time  `json:"paidAt"`
	Claimed      bool       `json:"claimed"`
	ClaimedAt    *time.Time `json:"claimedAt,omitempty"`
}

// PaymentGrant is returned when a paid session is exchanged for a publish bearer.
type PaymentGrant struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
	Email     string `json:"email"`
	Package   string `json:"package,omitempty"`
	DraftID   string `json:"draftId,omitempty"`
}

// WebhookAck acknowledges a verified payment provider event.
type WebhookAck struct {
	Received bool   `json:"received"`
	Type     string `json:"type"`
	Recorded bool   `json:"recorded"`
}
