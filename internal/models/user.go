package models

import "time"

// User is the identity behind a token, kept so blueprint authors can be named
type User struct {
	Id        string // IdP subject
	Name      string
	UpdatedAt time.Time
}

// DisplayName returns the name shown to other users
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	return u.Name
}
