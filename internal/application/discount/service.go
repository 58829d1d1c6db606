package discount

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/presswire-api/internal/domain"
	"github.com/presswire-api/internal/kv"
	"github.com/presswire-api/internal/pkg/clock"
	pkgtoken "github.com/presswire-api/internal/pkg/token"
	"github.com/presswire-api/internal/pkg/validate"
)

const (
	defaultPercent  = 10
	defaultValidFor = 30
	defaultMaxUses  = 1

	// averagePriceEUR values redeemed discounts in stats.
	averagePriceEUR = 199.0
)

var codePrefixes = []string{"SAVE", "DEAL", "PROMO", "PRESS"}

// Builtins are the launch codes present in every deployment.
var Builtins = []domain.DiscountCode{
	{Code: "LAUNCH50", DiscountPercent: 50, Description: "Launch discount - 50% off", MaxUses: 100, ValidUntil: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)},
	{Code: "EARLY30", DiscountPercent: 30, Description: "Early bird - 30% off", MaxUses: 50, ValidUntil: time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC)},
	{Code: "FRIEND20", DiscountPercent: 20, Description: "Friends & Family - 20% off", ValidUntil: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)},
	{Code: "STARTUP25", DiscountPercent: 25, Description: "Startup discount - 25% off", MaxUses: 200, ValidUntil: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)},
}

type Repository interface {
	Get(ctx context.Context, code string) (*domain.DiscountCode, error)
	Create(ctx context.Context, code string, v *domain.DiscountCode) error
	Mutate(ctx context.Context, code string, fn func(*domain.DiscountCode) error) (*domain.DiscountCode, error)
	List(ctx context.Context) (map[string]*domain.DiscountCode, error)
}

// Service manages checkout discount codes. Usage counts change only
// through Redeem, which is a compare-and-swap on the code's record.
type Service interface {
	Seed(ctx context.Context) error
	Validate(ctx context.Context, code string) (*domain.DiscountValidation, error)
	Generate(ctx context.Context, req domain.NewDiscount) (*domain.DiscountCode, error)
	List(ctx context.Context) ([]domain.DiscountCode, error)
	Revoke(ctx context.Context, code string) error
	Redeem(ctx context.Context, code string) (*domain.DiscountCode, error)
	Stats(ctx context.Context) (*domain.DiscountStats, error)
}

type ServiceDeps struct {
	Codes Repository
	Clock clock.Func
}

type service struct {
	codes Repository
	now   clock.Func
}

func NewService(d ServiceDeps) Service {
	return &service{codes: d.Codes, now: clock.OrReal(d.Clock)}
}

// NewCollection binds the discount repository to a kv store.
func NewCollection(store kv.Store) *kv.Collection[domain.DiscountCode] {
	return kv.NewCollection[domain.DiscountCode](store, "discount", 0)
}

func normalize(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

func (s *service) Seed(ctx context.Context) error {
	for _, b := range Builtins {
		d := b
		d.Active = true
		d.CreatedAt = s.now()
		if err := s.codes.Create(ctx, d.Code, &d); err != nil && !errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("seed discount %s: %w", d.Code, err)
		}
	}
	return nil
}

// check returns the reason a code cannot be used, or "".
func check(d *domain.DiscountCode, now time.Time) string {
	switch {
	case !d.Active:
		return "This discount code has been revoked"
	case !d.ValidUntil.IsZero() && now.After(d.ValidUntil):
		return "This discount code has expired"
	case d.MaxUses > 0 && d.UsedCount >= d.MaxUses:
		return "This discount code has reached its usage limit"
	}
	return ""
}

func (s *service) Validate(ctx context.Context, code string) (*domain.DiscountValidation, error) {
	code = normalize(code)
	if code == "" {
		return nil, fmt.Errorf("no discount code provided: %w", domain.ErrBadRequest)
	}
	d, err := s.codes.Get(ctx, code)
	if kv.IsNotFound(err) {
		return &domain.DiscountValidation{Reason: "Invalid discount code"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load discount: %v: %w", err, domain.ErrUpstream)
	}
	if reason := check(d, s.now()); reason != "" {
		return &domain.DiscountValidation{Reason: reason}, nil
	}
	return &domain.DiscountValidation{
		Valid:    true,
		Discount: &domain.DiscountSummary{Code: d.Code, DiscountPercent: d.DiscountPercent, Description: d.Description},
		Message:  d.Description + " applied successfully!",
	}, nil
}

func (s *service) Generate(ctx context.Context, req domain.NewDiscount) (*domain.DiscountCode, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.DiscountPercent == 0 {
		req.DiscountPercent = defaultPercent
	}
	if req.ValidDays == 0 {
		req.ValidDays = defaultValidFor
	}
	if req.MaxUses == 0 {
		req.MaxUses = defaultMaxUses
	}
	now := s.now()
	for attempt := 0; attempt < 3; attempt++ {
		code, err := pkgtoken.NewCode(codePrefixes[rand.IntN(len(codePrefixes))])
		if err != nil {
			return nil, err
		}
		d := &domain.DiscountCode{
			Code:            code,
			DiscountPercent: req.DiscountPercent,
			Description:     req.Description,
			MaxUses:         req.MaxUses,
			ValidUntil:      now.AddDate(0, 0, req.ValidDays),
			CreatedAt:       now,
			Active:          true,
		}
		err = s.codes.Create(ctx, code, d)
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store discount: %v: %w", err, domain.ErrUpstream)
		}
		return d, nil
	}
	return nil, fmt.Errorf("could not allocate a unique discount code: %w", domain.ErrConflict)
}

func (s *service) all(ctx context.Context) ([]domain.DiscountCode, error) {
	m, err := s.codes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list discounts: %v: %w", err, domain.ErrUpstream)
	}
	out := make([]domain.DiscountCode, 0, len(m))
	for _, d := range m {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

// List returns active, unexpired codes, newest first.
func (s *service) List(ctx context.Context) ([]domain.DiscountCode, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := all[:0]
	for _, d := range all {
		if d.Active && (d.ValidUntil.IsZero() || now.Before(d.ValidUntil)) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *service) Revoke(ctx context.Context, code string) error {
	code = normalize(code)
	if code == "" {
		return fmt.Errorf("token code required: %w", domain.ErrBadRequest)
	}
	_, err := s.codes.Mutate(ctx, code, func(d *domain.DiscountCode) error {
		if !d.Active {
			return kv.ErrAbort
		}
		d.Active = false
		return nil
	})
	if kv.IsNotFound(err) {
		return fmt.Errorf("discount %s: %w", code, domain.ErrNotFound)
	}
	return err
}

func (s *service) Redeem(ctx context.Context, code string) (*domain.DiscountCode, error) {
	code = normalize(code)
	now := s.now()
	d, err := s.codes.Mutate(ctx, code, func(d *domain.DiscountCode) error {
		if reason := check(d, now); reason != "" {
			return fmt.Errorf("%s: %w", reason, domain.ErrConflict)
		}
		d.UsedCount++
		return nil
	})
	if kv.IsNotFound(err) {
		return nil, fmt.Errorf("discount %s: %w", code, domain.ErrNotFound)
	}
	return d, err
}

func (s *service) Stats(ctx context.Context) (*domain.DiscountStats, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	st := &domain.DiscountStats{ByPercent: map[string]int{}}
	for _, d := range all {
		st.TotalCreated++
		expired := !d.ValidUntil.IsZero() && !now.Before(d.ValidUntil)
		if expired {
			st.Expired++
		} else if d.Active {
			st.Active++
		}
		if d.UsedCount > 0 {
			st.Used++
		}
		st.TotalDiscountEUR += averagePriceEUR * float64(d.DiscountPercent) / 100 * float64(d.UsedCount)
		st.ByPercent[fmt.Sprintf("%d%%", d.DiscountPercent)]++
	}
	return st, nil
}
