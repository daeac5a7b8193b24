package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// EPIC numbers are usually three letters and seven digits. Older cards
	// carry slash separated numbers.
	epicRegex      = regexp.MustCompile(`^[A-Za-z0-9/-]{6,32}$`)
	stateCodeRegex = regexp.MustCompile(`^[SU]\d{2}$`)
)

func epicValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return epicRegex.MatchString(strings.TrimSpace(val))
}

func stateCodeValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if val == "" {
		return true
	}
	return stateCodeRegex.MatchString(val)
}
