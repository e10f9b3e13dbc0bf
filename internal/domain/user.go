package domain

// User is the stored account record. HashedPassword never leaves the
// auth layer.
type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	HashedPassword string `json:"-"`
}

// CurrentUser is the identity resolved from a verified access token.
type CurrentUser struct {
	ID    string
	Email string
}
