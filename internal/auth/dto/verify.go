package dto

type ResendVerificationInput struct {
	Email string `json:"email"`
}
