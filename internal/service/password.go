package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// passwordHashCost fija el work factor de bcrypt.
const passwordHashCost = 10

// HashPassword genera un hash bcrypt con salt del password en claro.
func HashPassword(plain string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(plain), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// CheckPassword compara password en claro contra un hash bcrypt.
// Un mismatch devuelve (false, nil); un hash malformado u otro fallo
// del primitivo se devuelve como error interno, no como mismatch.
func CheckPassword(plain, hashed string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
