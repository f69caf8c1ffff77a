package auth

import "golang.org/x/crypto/bcrypt"

// HashClientSecret hashes a client secret with the configured cost.
func HashClientSecret(secret string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareClientSecret verifies a client secret against its hashed value.
func CompareClientSecret(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
