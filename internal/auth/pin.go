package auth

import (
	"errors"
	"fmt"

	"github.com/josh-kwaku/obras-ledger/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const MinPINLength = 4

// HashPIN produces the value stored in ACCESS_PIN_HASH.
func HashPIN(pin string, cost int) (string, error) {
	if len(pin) < MinPINLength {
		return "", fmt.Errorf("HashPIN: pin shorter than %d characters", MinPINLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return "", fmt.Errorf("HashPIN: %w", err)
	}
	return string(hash), nil
}

func CheckPIN(hash, pin string) error {
	if pin == "" {
		return fmt.Errorf("CheckPIN: %w", domain.ErrInvalidCredentials)
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("CheckPIN: %w", domain.ErrInvalidCredentials)
	}
	if err != nil {
		return fmt.Errorf("CheckPIN: %w", err)
	}
	return nil
}
