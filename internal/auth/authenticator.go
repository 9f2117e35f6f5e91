package auth

import "context"

// Authenticator verifies the credentials a transport bridge presents before
// it is issued a token. Implementations can be swapped without touching
// the service layer.
type Authenticator interface {
	// Authenticate checks the credential of the bridge with the given id.
	Authenticate(ctx context.Context, bridgeID, credential string) error

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
