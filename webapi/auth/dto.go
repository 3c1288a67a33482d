package auth

import "github.com/amirasaad/cashfake/pkg/domain/account"

// RegisterInput is the registration request body.
type RegisterInput struct {
	FullName  string `json:"fullName" validate:"max=120"`
	Email     string `json:"email" validate:"max=254"`
	Password  string `json:"password1" validate:"max=72"`
	Password2 string `json:"password2" validate:"max=72"`
}

// LoginInput represents the request body for authentication.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	User  account.View `json:"user"`
	Token string       `json:"token"`
}
