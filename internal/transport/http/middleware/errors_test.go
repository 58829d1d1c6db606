package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/presswire-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{domain.ErrCodeExpired, http.StatusBadRequest, "verification code expired"},
		{domain.ErrTokenNotFound, http.StatusUnauthorized, "invalid or expired token"},
		{domain.ErrPaymentProofMissing, http.StatusPaymentRequired, "extension requires payment"},
		{domain.ErrEditWindowExpired, http.StatusForbidden, "edit period has expired"},
		{fmt.Errorf("draft missing: %w", domain.ErrNotFound), http.StatusNotFound, "draft missing"},
		{fmt.Errorf("already claimed: %w", domain.ErrConflict), http.StatusConflict, "already claimed"},
		{fmt.Errorf("dns lookup: %w", domain.ErrUnavailable), http.StatusServiceUnavailable, "Service temporarily unavailable, please retry"},
		{fmt.Errorf("put: table gone: %w", domain.ErrUpstream), http.StatusInternalServerError, "Internal server error"},
		{errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
		{fmt.Errorf("mx lookup for acme.ie: lookup acme.ie on 10.0.0.2:53: no such host: %w", domain.ErrDomainUnreachable), http.StatusBadRequest, "domain cannot receive email"},
		{fmt.Errorf("submit: %w", fmt.Errorf("store: %w", domain.ErrCodeMismatch)), http.StatusBadRequest, "invalid verification code"},
		{fmt.Errorf("admin-bypass grant: %w", domain.ErrTokenExpired), http.StatusUnauthorized, "token expired"},
		{errors.Join(errors.New("stripe: bad signature header t=1"), domain.ErrBadRequest), http.StatusBadRequest, "bad request"},
	}
	for _, c := range cases {
		status, msg := ErrorStatus(c.err)
		assert.Equal(t, c.status, status, c.err.Error())
		assert.Equal(t, c.msg, msg)
	}
}
