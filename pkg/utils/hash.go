package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt cost applied to new hashes.
const HashCost = 12

// HashPassword hashes a plain password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	return string(bytes), err
}

// CheckPassword compares plain password with the stored hash. When the stored
// hash uses a lower cost than HashCost, a rehash at the current cost is
// returned so the caller can rewrite it alongside the successful login.
func CheckPassword(plain, hashed string) (valid bool, upgraded string) {
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)); err != nil {
		return false, ""
	}
	cost, err := bcrypt.Cost([]byte(hashed))
	if err == nil && cost < HashCost {
		if rehash, err := bcrypt.GenerateFromPassword([]byte(plain), HashCost); err == nil {
			return true, string(rehash)
		}
	}
	return true, ""
}
