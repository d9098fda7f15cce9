package auth

// LoginRequest captures the customer credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse contains the issued credential and its lifetime.
type LoginResponse struct {
	Token     string `json:"token"`
	UserID    int64  `json:"user_id"`
	ExpiresIn int64  `json:"expires_in"`
}

// ProfileResponse is the authenticated customer's own directory view.
type ProfileResponse struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Guest       bool   `json:"is_guest"`
}
