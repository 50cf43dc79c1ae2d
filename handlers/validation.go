package handlers

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// UseJSONFieldNames makes validation errors name fields by their JSON keys.
// Call once at startup, before any request is bound.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}

// bindingErrorBody turns a ShouldBindJSON error into a 400 response body.
func bindingErrorBody(err error) map[string]any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]any{"error": "Invalid request body"}
	}

	details := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		// Drop the struct name: "CheckoutRequest.cartItems[0].quantity".
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		details = append(details, fieldError{Field: field, Rule: fe.Tag(), Param: fe.Param()})
	}
	return map[string]any{"error": "Validation failed", "details": details}
}
