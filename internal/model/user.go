package model

import (
	"time"
)

// User is the local account an SSO character resolves to.
type User struct {
	ID            string    `db:"id"`
	CharacterID   int64     `db:"character_id"`
	CharacterName string    `db:"character_name"`
	OwnerHash     string    `db:"owner_hash"`
	Active        bool      `db:"active"` // False until email verification, unless bypassed
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Identity is what the SSO provider reports for an authenticated character.
type Identity struct {
	CharacterID   int64
	CharacterName string
	OwnerHash     string
}
