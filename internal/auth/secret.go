package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid bridge id or secret")
	ErrWeakSecret         = errors.New("bridge secret must be at least 16 characters")
)

// MinSecretLength is the shortest accepted bridge secret.
const MinSecretLength = 16

// SecretAuthenticator checks a bridge's shared secret against a bcrypt hash.
type SecretAuthenticator struct {
	bridgeID   string
	secretHash []byte
}

// NewSecretAuthenticator creates an authenticator for one bridge.
func NewSecretAuthenticator(bridgeID, secretHash string) *SecretAuthenticator {
	return &SecretAuthenticator{
		bridgeID:   bridgeID,
		secretHash: []byte(secretHash),
	}
}

// ValidateCredential checks if the secret meets minimum requirements.
func (a *SecretAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < MinSecretLength {
		return ErrWeakSecret
	}
	return nil
}

// Authenticate verifies the bridge id and secret.
func (a *SecretAuthenticator) Authenticate(_ context.Context, bridgeID, credential string) error {
	if subtle.ConstantTimeCompare([]byte(bridgeID), []byte(a.bridgeID)) != 1 {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.secretHash, []byte(credential)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashSecret hashes a bridge secret for the configuration.
func HashSecret(secret string) (string, error) {
	if len(secret) < MinSecretLength {
		return "", ErrWeakSecret
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}
