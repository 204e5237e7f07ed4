package models

// TokenPair holds the credential pair issued on login and rotated on refresh.
// The pair is replaced atomically: a reader never observes a new access token
// next to an old refresh token.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
