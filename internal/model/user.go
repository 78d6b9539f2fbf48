// Package model defines the data structures used throughout the application.
package model

import "time"

const (
	// DefaultFrequency is assigned to users on first login.
	DefaultFrequency = 1
	// MaxFrequency bounds how many videos a user may request per period.
	MaxFrequency = 10
)

// User represents a registered account.
//
// Google is the only identity provider, so GoogleID (the OpenID "sub" claim)
// is the stable external identifier. We still generate our own internal xid
// so jobs never reference a third-party numbering scheme.
//
// The OAuth tokens are the ones granted with the youtube.upload scope. They
// are never serialised to JSON; HasUploadAccess exposes whether they exist.
type User struct {
	ID           string    `json:"id"`
	GoogleID     string    `json:"googleId"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Frequency    int       `json:"frequency"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasUploadAccess reports whether the user granted a refreshable token.
// An access token alone expires within the hour and cannot serve a weekly run.
func (u *User) HasUploadAccess() bool {
	return u.RefreshToken != ""
}

// ValidFrequency reports whether f is an acceptable per-period video count.
func ValidFrequency(f int) bool {
	return f >= 1 && f <= MaxFrequency
}
