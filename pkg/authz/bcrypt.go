package authz

import "golang.org/x/crypto/bcrypt"

// BcryptVerify is the default LocalBackend.Verify implementation, matching
// the hash format original_source stores on the Owner row's password
// column.
func BcryptVerify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashPassword produces a bcrypt hash suitable for storing on a new Owner
// row, used by the `PUT /users` registration handler.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
