package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/bhagwatcoding/cms-winfoa-sub000/pkg/errors"
	"github.com/bhagwatcoding/cms-winfoa-sub000/pkg/response"
	appValidator "github.com/bhagwatcoding/cms-winfoa-sub000/pkg/validator"
)

const invalidPayload = "invalid request payload"

// bindAndValidate decodes the JSON body into dest and applies its validate tags.
// On failure it writes a 400 envelope and returns false.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(validationMessage(err)))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var failures appValidator.ValidationErrors
	if !errors.As(err, &failures) || len(failures) == 0 {
		return invalidPayload
	}

	messages := make([]string, 0, len(failures))
	for _, failure := range failures {
		field := strings.ToLower(strings.ReplaceAll(failure.Field, "_", " "))
		switch failure.Tag {
		case "required":
			messages = append(messages, field+" is required")
		case "email":
			messages = append(messages, field+" must be a valid email address")
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, failure.Param))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid (%s)", field, failure.Tag))
		}
	}
	return strings.Join(messages, "; ")
}

// boundedIntQuery reads an integer query parameter. Missing, malformed or
// out-of-range values fall back to def.
func boundedIntQuery(c *gin.Context, key string, def, max int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 || value > max {
		return def
	}
	return value
}
