package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/presswire-api/internal/domain"
)

var categories = []struct {
	err    error
	status int
}{
	{domain.ErrBadRequest, http.StatusBadRequest},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrPaymentRequired, http.StatusPaymentRequired},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrRateLimited, http.StatusTooManyRequests},
	{domain.ErrUnavailable, http.StatusServiceUnavailable},
	{domain.ErrUpstream, http.StatusInternalServerError},
}

// ErrorStatus maps a service error to its HTTP status and client message.
// Server-side failures never expose their detail. Client errors report the
// most specific error wrapping the category, so context added around a
// sentinel such as domain.ErrDomainUnreachable stays in the logs.
func ErrorStatus(err error) (int, string) {
	for _, c := range categories {
		if !errors.Is(err, c.err) {
			continue
		}
		switch c.status {
		case http.StatusInternalServerError:
			return c.status, "Internal server error"
		case http.StatusServiceUnavailable:
			return c.status, "Service temporarily unavailable, please retry"
		}
		return c.status, publicMessage(err, c.err)
	}
	return http.StatusInternalServerError, "Internal server error"
}

func publicMessage(err, category error) string {
	msg := innermost(err, category).Error()
	if trimmed, ok := strings.CutSuffix(msg, ": "+category.Error()); ok && !strings.Contains(trimmed, "\n") {
		return trimmed
	}
	return category.Error()
}

// innermost returns the deepest error in err's tree that still wraps
// category without being it.
func innermost(err, category error) error {
	var next []error
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		next = []error{u.Unwrap()}
	case interface{ Unwrap() []error }:
		next = u.Unwrap()
	}
	for _, e := range next {
		if e != nil && e != category && errors.Is(e, category) {
			return innermost(e, category)
		}
	}
	return err
}

// WriteError writes err as a JSON error envelope and logs server-side failures.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSONError(w, status, msg)
}
