package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidTerms       = errors.New("invalid contract terms")
	ErrInvalidMovement    = errors.New("invalid movement")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrInvalidAllocation  = errors.New("invalid allocation input")
	ErrContractNotActive  = errors.New("contract is not active")
	ErrContractExists     = errors.New("contract code already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
