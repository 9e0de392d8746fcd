// Package validation normalises and checks the free-form inputs of the
// directory services.
package validation

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func validate() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
	})
	return instance
}

// CountryCode upper-cases raw and checks it is an ISO 3166-1 alpha-2 code.
func CountryCode(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	return code, validate().Var(code, "required,len=2,iso3166_1_alpha2") == nil
}

// CurrencyCode upper-cases raw and checks it is an ISO 4217 code.
func CurrencyCode(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	return code, validate().Var(code, "required,len=3,iso4217") == nil
}

// Email lower-cases raw and checks its shape.
func Email(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	return email, validate().Var(email, "required,email,max=255") == nil
}

// Name trims raw and checks 1..maxLen characters.
func Name(raw string, maxLen int) (string, bool) {
	name := strings.TrimSpace(raw)
	n := len([]rune(name))
	return name, n >= 1 && n <= maxLen
}

// Text trims raw and checks it is at most maxLen characters. Empty is allowed.
func Text(raw string, maxLen int) (string, bool) {
	value := strings.TrimSpace(raw)
	return value, len([]rune(value)) <= maxLen
}
