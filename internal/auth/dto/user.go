package dto

import (
	"github.com/dylanc316/essayhuzz/internal/auth/domain"
)

// UserOutput is the public profile shape. It never carries the
// password hash.
type UserOutput struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
}

func NewUserOutput(u *domain.User) UserOutput {
	return UserOutput{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
	}
}
