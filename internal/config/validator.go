package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/deskline/deskline/internal/apierrors"
)

// Validator checks a loaded Config before the client is built. Problems
// that would make every request fail are errors, each an
// apierrors.ConfigError; the rest are warnings.
type Validator struct {
	config   *Config
	problems []error
	warnings []string
}

func NewValidator(cfg *Config) *Validator {
	return &Validator{
		config:   cfg,
		warnings: []string{},
	}
}

func (v *Validator) Validate() error {
	v.validateBaseURL()
	v.validateTimeout()
	v.validateLog()

	return errors.Join(v.problems...)
}

// Warnings returns the non-fatal findings of the last Validate call.
func (v *Validator) Warnings() []string {
	return v.warnings
}

func (v *Validator) validateBaseURL() {
	raw := v.config.API.BaseURL
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		v.addError("api.base_url", fmt.Sprintf("%q is not an absolute URL", raw))
		return
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !isLoopback(u.Hostname()) {
			v.addWarning(fmt.Sprintf("api.base_url %q sends the session token in clear text", raw))
		}
	default:
		v.addError("api.base_url", fmt.Sprintf("scheme %q is not http or https", u.Scheme))
	}
	if u.Path != "" && u.Path != "/" {
		v.addWarning(fmt.Sprintf("api.base_url %q has a path; /api/%s is appended to it", raw, APIVersion))
	}
}

func (v *Validator) validateTimeout() {
	if v.config.HTTP.Timeout <= 0 {
		v.addError("http.timeout", "must be positive")
	}
}

func (v *Validator) validateLog() {
	if _, err := zerolog.ParseLevel(strings.ToLower(v.config.Log.Level)); err != nil {
		v.addError("log.level", fmt.Sprintf("%q is not a known level", v.config.Log.Level))
	}
	switch v.config.Log.Format {
	case "console", "json":
	default:
		v.addError("log.format", fmt.Sprintf("%q must be console or json", v.config.Log.Format))
	}
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func (v *Validator) addError(field, message string) {
	v.problems = append(v.problems, &apierrors.ConfigError{Field: field, Message: message})
}

func (v *Validator) addWarning(message string) {
	v.warnings = append(v.warnings, message)
}

// Validate runs a Validator over cfg.
func Validate(cfg *Config) error {
	return NewValidator(cfg).Validate()
}
