package config

import (
	"os"
	"regexp"
)

// EnvironmentExpander expands environment variable placeholders within raw configuration.
type EnvironmentExpander interface {
	// Expand returns input with every ${VAR} placeholder replaced by the value of VAR.
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander resolves placeholders from the process environment.
// Only the braced ${VAR} form is expanded so prompt text containing a bare '$' survives intact.
// Unset variables expand to the empty string.
type OsEnvironmentExpander struct{}

// NewOsEnvironmentExpander creates and returns a new instance of OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Expand implements EnvironmentExpander.
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	return placeholderPattern.ReplaceAllFunc(input, func(m []byte) []byte {
		name := placeholderPattern.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	}), nil
}

var _ EnvironmentExpander = (*OsEnvironmentExpander)(nil)
