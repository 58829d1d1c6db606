package stripeinfra

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/presswire-api/internal/domain"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// EventCheckoutCompleted is the only event type that changes state.
const EventCheckoutCompleted = "checkout.session.completed"

// CheckoutCompleted is the subset of a checkout session the service records.
type CheckoutCompleted struct {
	SessionID    string
	Email        string
	Package      string
	DraftID      string
	DiscountCode string
	AmountTotal  int64
	Currency     string
	Paid         bool
}

// Event is a verified webhook delivery. Checkout is set for checkout.session.completed.
type Event struct {
	ID       string
	Type     string
	Checkout *CheckoutCompleted
}

// Verifier checks webhook signatures against the endpoint secret.
type Verifier struct {
	secret string
}

// NewVerifier returns a Verifier for the given signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// VerifySignature authenticates payload using the Stripe-Signature header
// value and decodes the event. Any verification failure wraps domain.ErrBadRequest.
func (v *Verifier) VerifySignature(payload []byte, signature string) (*Event, error) {
	if v.secret == "" {
		return nil, fmt.Errorf("webhook secret not configured: %w", domain.ErrUnavailable)
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid webhook signature: %v: %w", err, domain.ErrBadRequest)
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}
	if out.Type != EventCheckoutCompleted || ev.Data == nil {
		return out, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %v: %w", err, domain.ErrBadRequest)
	}
	email := cs.CustomerEmail
	if cs.CustomerDetails != nil && cs.CustomerDetails.Email != "" {
		email = cs.CustomerDetails.Email
	}
	out.Checkout = &CheckoutCompleted{
		SessionID:    cs.ID,
		Email:        strings.ToLower(email),
		Package:      cs.Metadata["package"],
		DraftID:      cs.Metadata["draftId"],
		DiscountCode: cs.Metadata["discountCode"],
		AmountTotal:  cs.AmountTotal,
		Currency:     string(cs.Currency),
		Paid:         cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid || cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired,
	}
	return out, nil
}
