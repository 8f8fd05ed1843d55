package verify

import (
	"errors"

	"github.com/collabiora/companion/internal/api"
)

// MapVerificationError converts a backend failure into the user-facing
// message for the error state, including what to do about it.
func MapVerificationError(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "expired_token":
			return "This verification link has expired. Request a new email."
		case "invalid_token":
			return "This verification link is not valid. Request a new email."
		case "expired_otp":
			return "That code has expired. Request a new one."
		case "invalid_otp":
			return "That code is not correct. Check it and try again."
		case "rate_limited":
			return "Too many attempts. Wait a few minutes before retrying."
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return "Verification failed. Check your connection and try again."
}
