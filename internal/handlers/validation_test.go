package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appValidator "github.com/bhagwatcoding/cms-winfoa-sub000/pkg/validator"
)

func TestValidationMessage(t *testing.T) {
	err := appValidator.ValidateStruct(&loginRequest{Email: "nope"})
	require.Error(t, err)
	require.Equal(t, "email must be a valid email address; password is required", validationMessage(err))

	require.Equal(t, invalidPayload, validationMessage(errors.New("boom")))
}

func TestBoundedIntQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := map[string]int{
		"":           50,
		"?limit=10":  10,
		"?limit=200": 200,
		"?limit=201": 50,
		"?limit=0":   50,
		"?limit=-3":  50,
		"?limit=abc": 50,
	}
	for query, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/api/auth/activity"+query, nil)
		require.Equal(t, want, boundedIntQuery(c, "limit", 50, 200), query)
	}
}
