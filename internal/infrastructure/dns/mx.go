package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/presswire-api/internal/domain"
)

// Resolver is satisfied by *net.Resolver.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// MXChecker decides whether a domain can receive mail.
type MXChecker struct {
	resolver Resolver
	timeout  time.Duration
}

// NewMXChecker bounds every lookup by timeout. A nil resolver uses net.DefaultResolver.
func NewMXChecker(r Resolver, timeout time.Duration) *MXChecker {
	if r == nil {
		r = net.DefaultResolver
	}
	return &MXChecker{resolver: r, timeout: timeout}
}

// HasMX returns nil when the domain publishes at least one MX record.
// A timed-out lookup returns an error wrapping domain.ErrUnavailable; every
// other failure wraps domain.ErrDomainUnreachable.
func (c *MXChecker) HasMX(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	records, err := c.resolver.LookupMX(ctx, name)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &dnsErr) && dnsErr.IsTimeout) {
			return fmt.Errorf("mx lookup for %s timed out: %w", name, domain.ErrUnavailable)
		}
		return fmt.Errorf("mx lookup for %s: %v: %w", name, err, domain.ErrDomainUnreachable)
	}
	if len(records) == 0 {
		return fmt.Errorf("no mx records for %s: %w", name, domain.ErrDomainUnreachable)
	}
	return nil
}
