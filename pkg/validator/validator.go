// Package validator holds the shared go-playground validator instance and the
// custom tags registered on it.
package validator

import (
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var slotDatePattern = regexp.MustCompile(`^\d{1,4}_\d{1,2}_\d{1,4}$`)

var (
	once     sync.Once
	instance *validator.Validate
)

// Engine returns the process-wide validator with custom tags registered.
func Engine() *validator.Validate {
	once.Do(func() {
		instance = validator.New()
		Register(instance)
	})
	return instance
}

// Register adds the custom tags to v. gin's binding engine gets the same tags
// through this function.
func Register(v *validator.Validate) {
	_ = v.RegisterValidation("slotdate", func(fl validator.FieldLevel) bool {
		return slotDatePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// IsEmail reports whether s is a syntactically valid address.
func IsEmail(s string) bool {
	return Engine().Var(s, "required,email") == nil
}

// Struct validates obj against its `validate` tags.
func Struct(obj interface{}) error {
	return Engine().Struct(obj)
}
