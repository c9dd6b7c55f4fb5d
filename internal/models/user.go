package models

type ctxKey string

const UserContextKey ctxKey = "user"

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is what the record store keeps for a minted token.
type Session struct {
	User       User   `json:"user"`
	SecretHash []byte `json:"secret_hash"`
}
