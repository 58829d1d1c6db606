package domain

import "time"

// GrantKind names the variant of a resolved publish bearer.
type GrantKind string

const (
	GrantVerificationDerived GrantKind = "VerificationDerived"
	GrantAdminBypass         GrantKind = "AdminBypass"
	GrantPaymentVerified     GrantKind = "PaymentVerified"
	GrantDemo                GrantKind = "DemoToken"
)

// Identity is the normalized result of authorizing a publish bearer.
type Identity struct {
	Email        string    `json:"email"`
	Domain       string    `json:"domain"`
	IsTrustedTLD bool      `json:"isTrustedTLD"`
	GrantKind    GrantKind `json:"grantKind"`
}

// IssuedGrant is a freshly signed bearer handed to an operator or customer.
type IssuedGrant struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	ExpiresIn string    `json:"expiresIn"`
}
