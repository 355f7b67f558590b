package domain

import "time"

// User es el registro durable de una cuenta. username, email y phone
// son únicos a nivel de base de datos; RefreshToken guarda el último
// refresh token emitido (una sola sesión activa por usuario).
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Sanitized devuelve una copia sin credenciales, apta para adjuntar al
// contexto de un request.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	return u
}
