package domain

import "time"

// VerificationCode is the one-time numeric code issued per email address.
// Keyed by Email; issuing a new code overwrites the previous one.
type VerificationCode struct {
	Email        string    `json:"email"`
	Code         string    `json:"code"`
	Domain       string    `json:"domain"`
	IsTrustedTLD bool      `json:"is_trusted_tld"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	// Consumed flips once, atomically, when a submission matches.
	Consumed bool `json:"consumed,omitempty"`
}

// VerificationToken is the bearer minted from a verified code. Keyed by Token.
type VerificationToken struct {
	Token        string    `json:"token"`
	Email        string    `json:"email"`
	Domain       string    `json:"domain"`
	IsTrustedTLD bool      `json:"is_trusted_tld"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// VerifiedIdentity is returned by a successful code submission.
type VerifiedIdentity struct {
	Token        string `json:"token"`
	Domain       string `json:"domain"`
	IsTrustedTLD bool   `json:"isTrustedTLD"`
}

// CodeIssued is the result of a successful code request. Code is only
// populated outside production.
type CodeIssued struct {
	Domain       string `json:"domain"`
	IsTrustedTLD bool   `json:"isTrustedTLD"`
	Code         string `json:"code,omitempty"`
}
