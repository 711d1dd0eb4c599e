package config

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("tiles_url", validateTilesURL)
}

// validateTilesURL accepts slippy-map templates such as
// https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png
func validateTilesURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	for _, placeholder := range []string{"{z}", "{x}", "{y}"} {
		if !strings.Contains(raw, placeholder) {
			return false
		}
	}
	u, err := url.Parse(strings.NewReplacer("{s}", "a", "{z}", "0", "{x}", "0", "{y}", "0", "{r}", "").Replace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
