package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrMissingToken       = &AppError{http.StatusUnauthorized, "MISSING_TOKEN", "Authorization header required"}
	ErrInvalidToken       = &AppError{http.StatusUnauthorized, "INVALID_TOKEN", "Token is invalid or expired"}
	ErrInvalidCredentials = &AppError{http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid access PIN"}
	ErrInvalidRequest     = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed   = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound   = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError      = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidAmount     = &AppError{http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than zero"}
	ErrInvalidTerms      = &AppError{http.StatusBadRequest, "INVALID_TERMS", "Contract terms are invalid"}
	ErrInvalidPeriod     = &AppError{http.StatusBadRequest, "INVALID_PERIOD", "Period is invalid"}
	ErrInvalidAllocation = &AppError{http.StatusBadRequest, "INVALID_ALLOCATION", "Allocation input is invalid"}
	ErrInvalidMovement   = &AppError{http.StatusUnprocessableEntity, "INVALID_MOVEMENT", "Movement rejected by the contract ledger"}
	ErrContractNotActive = &AppError{http.StatusUnprocessableEntity, "CONTRACT_NOT_ACTIVE", "Contract is not active"}
	ErrContractExists    = &AppError{http.StatusConflict, "CONTRACT_ALREADY_EXISTS", "A contract with this code already exists"}

	ErrMissingIdempotencyKey = &AppError{http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", "Idempotency-Key header is required"}
	ErrIdempotencyConflict   = &AppError{http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key already used with a different request"}
)
