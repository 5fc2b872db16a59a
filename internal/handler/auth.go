package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/josh-kwaku/obras-ledger/internal/auth"
	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"github.com/josh-kwaku/obras-ledger/internal/logging"
)

type AuthHandler struct {
	pinHash   string
	jwtSecret string
	jwtExpiry time.Duration
}

func NewAuthHandler(pinHash, jwtSecret string, jwtExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		pinHash:   pinHash,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
	}
}

type pinLoginRequest struct {
	Operator string `json:"operator"`
	PIN      string `json:"pin"`
}

func (r pinLoginRequest) Validate() []FieldError {
	var errs []FieldError
	if strings.TrimSpace(r.Operator) == "" {
		errs = append(errs, FieldError{Field: "operator", Message: "required"})
	}
	if r.PIN == "" {
		errs = append(errs, FieldError{Field: "pin", Message: "required"})
	}
	return errs
}

type loginResponse struct {
	Token     string    `json:"token"`
	Operator  string    `json:"operator"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req pinLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	if fields := req.Validate(); len(fields) > 0 {
		RespondValidationError(w, fields)
		return
	}

	operator := strings.TrimSpace(req.Operator)
	if err := auth.CheckPIN(h.pinHash, req.PIN); err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			logging.FromContext(r.Context()).Warn("pin login rejected", "operator", operator)
			RespondAppError(w, ErrInvalidCredentials, nil)
			return
		}
		logging.FromContext(r.Context()).Error("pin check failed", "error", err)
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	token, err := auth.GenerateToken(operator, auth.RoleOperator, h.jwtSecret, h.jwtExpiry)
	if err != nil {
		RespondAppError(w, ErrInternalError, nil)
		return
	}

	RespondSuccess(w, http.StatusOK, loginResponse{
		Token:     token,
		Operator:  operator,
		ExpiresAt: time.Now().UTC().Add(h.jwtExpiry),
	})
}
