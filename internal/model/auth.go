package model

// AuthRequest types
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GoogleAuthRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// GoogleProfile is the subset of verified ID token claims used on sign-in.
type GoogleProfile struct {
	Email   string
	Name    string
	Picture string
}
