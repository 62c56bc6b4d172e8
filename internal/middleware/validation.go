package middleware

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/qline/queue-api/internal/phone"
)

// RegisterValidators installs custom binding rules on gin's validator engine.
// Call once at startup before routes are registered.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// phone accepts any format that normalizes to 7-15 digits, the E.164
	// length range.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		norm := phone.Normalize(fl.Field().String())
		return len(norm) >= 7 && len(norm) <= 15
	})
}
