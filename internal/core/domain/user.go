package domain

import "time"

// Identity is the verified user reference bound to a connection. It is
// resolved once and never changes for the lifetime of the session.
type Identity struct {
	UserID   UserID
	Username string
}

type User struct {
	ID        UserID    `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName is the name shown next to a user's messages.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Username
	}
}
