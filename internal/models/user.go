package models

// User represents the signed-in user descriptor returned by the backend
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// AuthSession holds the bearer token and user descriptor of a visitor
type AuthSession struct {
	Token string `json:"-"` // Never serialized to the UI
	User  *User  `json:"user"`
}

// LoginRequest is the sign-in payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the backend sign-in response
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}
