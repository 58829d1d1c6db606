package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/presswire-api/internal/domain"
	"github.com/presswire-api/internal/transport/http/middleware"
)

// maxBody caps JSON request bodies.
const maxBody = 1 << 20

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ActionRequest is the body shared by the action-dispatched endpoints.
type ActionRequest struct {
	Action          string          `json:"action"`
	ManagementToken string          `json:"managementToken,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	middleware.WriteError(w, r, err)
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body required: %w", domain.ErrBadRequest)
		}
		return fmt.Errorf("invalid request body: %w", domain.ErrBadRequest)
	}
	return nil
}

// decodeData unpacks an action's data object. Absent data leaves v untouched.
func decodeData(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid data: %w", domain.ErrBadRequest)
	}
	return nil
}

func unknownAction() error {
	return fmt.Errorf("invalid action: %w", domain.ErrBadRequest)
}
