package domain

import "time"

// DiscountCode is a checkout discount. MaxUses of 0 means unlimited.
type DiscountCode struct {
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discountPercent"`
	Description     string    `json:"description"`
	MaxUses         int       `json:"maxUses"`
	UsedCount       int       `json:"usedCount"`
	ValidUntil      time.Time `json:"validUntil"`
	CreatedAt       time.Time `json:"createdAt"`
	Active          bool      `json:"active"`
}

// Remaining returns the number of uses left, or -1 when unlimited.
func (d *DiscountCode) Remaining() int {
	if d.MaxUses == 0 {
		return -1
	}
	return d.MaxUses - d.UsedCount
}

// NewDiscount is the admin request to mint a discount code.
type NewDiscount struct {
	DiscountPercent int    `json:"discountPercent" validate:"omitempty,oneof=10 25 50 100"`
	ValidDays       int    `json:"validDays" validate:"omitempty,min=1,max=3650"`
	MaxUses         int    `json:"maxUses" validate:"omitempty,min=1"`
	Description     string `json:"description" validate:"max=200"`
}

// DiscountSummary is the public view of a valid code.
type DiscountSummary struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discountPercent"`
	Description     string `json:"description"`
}

// DiscountValidation is the result of a public code check. Invalid codes
// are a normal outcome, not an error.
type DiscountValidation struct {
	Valid    bool             `json:"valid"`
	Discount *DiscountSummary `json:"discount,omitempty"`
	Reason   string           `json:"error,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// DiscountStats summarises every code ever created.
type DiscountStats struct {
	TotalCreated     int            `json:"totalTokensCreated"`
	Active           int            `json:"activeTokens"`
	Used             int            `json:"usedTokens"`
	Expired          int            `json:"expiredTokens"`
	TotalDiscountEUR float64        `json:"totalDiscountValue"`
	ByPercent        map[string]int `json:"tokensByDiscount"`
}
