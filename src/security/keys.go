// Package security generates and verifies terminal API keys.
//
// A key has the form "<keyID>.<secret>". The key ID is stored in clear and
// indexed for lookup; only a bcrypt hash of the secret is persisted, so a
// leaked accounts table cannot authenticate a terminal.
package security

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// APIKey is the generated credential triple. Plaintext is shown to the
// user exactly once at link time and never stored.
type APIKey struct {
	Plaintext string
	KeyID     string
	Hash      string
}

// GenerateAPIKey mints a fresh terminal credential.
func GenerateAPIKey() (APIKey, error) {
	keyID := strings.ReplaceAll(uuid.NewString(), "-", "")
	secret := strings.ReplaceAll(uuid.NewString(), "-", "")

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), GetConfig().BcryptCost)
	if err != nil {
		return APIKey{}, err
	}

	return APIKey{
		Plaintext: keyID + "." + secret,
		KeyID:     keyID,
		Hash:      string(hash),
	}, nil
}

// SplitAPIKey separates a presented key into its ID and secret parts.
func SplitAPIKey(apiKey string) (keyID, secret string, ok bool) {
	keyID, secret, found := strings.Cut(strings.TrimSpace(apiKey), ".")
	if !found || keyID == "" || secret == "" {
		return "", "", false
	}
	return keyID, secret, true
}

// VerifySecret checks a presented secret against the stored hash.
func VerifySecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
