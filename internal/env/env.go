package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/modelmem/internal/envvar"
)

// Environment identifies the runtime environment.
type Environment string

const (
	// Development is the default environment.
	Development Environment = "development"

	// Production enables file logging and quieter log levels.
	Production Environment = "production"
)

// FromEnv resolves the environment from MODELMEM_ENV.
// Unknown or empty values fall back to Development.
func FromEnv() Environment {
	switch strings.ToLower(os.Getenv(envvar.ModelmemEnv)) {
	case "production", "prod":
		return Production
	default:
		return Development
	}
}

// IsProduction reports whether the environment is production.
func (e Environment) IsProduction() bool {
	return e == Production
}
