package validator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Method   string `json:"method" validate:"omitempty,oneof=password otp sso"`
}

func TestValidateStructSuccess(t *testing.T) {
	err := ValidateStruct(loginPayload{
		Email:    "alice@example.com",
		Password: "correct-horse",
		Method:   "password",
	})
	require.NoError(t, err)
}

func TestValidateStructFailures(t *testing.T) {
	err := ValidateStruct(loginPayload{Email: "invalid", Password: "short", Method: "carrier-pigeon"})
	require.Error(t, err)

	vErrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	require.Equal(t, []string{"email", "password", "method"}, vErrs.Fields())
}
