package models

// User is the operator identity returned by the login endpoint and cached
// alongside the token pair. Valid only while a token pair exists.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
}
