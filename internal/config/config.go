package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/floxcristian/nx-starter/internal/spec"
)

const backendSuffix = "_BACKEND_URL"

// Config captures the generation parameters read from the environment.
// All keys are prefixed with GATEWAY_ (e.g. GATEWAY_OUTPUT_PATH).
type Config struct {
	OutputPath    string        `env:"OUTPUT_PATH" envDefault:"gateway/openapi.yaml"`
	Title         string        `env:"TITLE" envDefault:"API Gateway"`
	Description   string        `env:"DESCRIPTION" envDefault:""`
	Version       string        `env:"VERSION" envDefault:"1.0.0"`
	Protocol      string        `env:"PROTOCOL" envDefault:"https"`
	ProjectID     string        `env:"PROJECT_ID"`
	RateLimit     int           `env:"RATE_LIMIT" envDefault:"5000"`
	WorkspaceRoot string        `env:"WORKSPACE_ROOT" envDefault:"."`
	GraphCommand  string        `env:"GRAPH_COMMAND" envDefault:""`
	GraphTimeout  time.Duration `env:"GRAPH_TIMEOUT" envDefault:"60s"`
}

// Load parses the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "GATEWAY_"}); err != nil {
		return nil, &spec.GenError{Code: spec.ConfigError, Message: fmt.Sprintf("config: parse environment: %v", err), Cause: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var versionRe = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)

// Validate checks required keys and value shapes. The returned error names
// the offending key and shows an example of a valid value.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.OutputPath) == "" {
		return &spec.GenError{Code: spec.ConfigError, Key: "GATEWAY_OUTPUT_PATH",
			Message: `config: GATEWAY_OUTPUT_PATH must not be empty (example: "gateway/openapi.yaml")`}
	}
	if !versionRe.MatchString(c.Version) {
		return &spec.GenError{Code: spec.ConfigError, Key: "GATEWAY_VERSION",
			Message: fmt.Sprintf(`config: GATEWAY_VERSION %q is not MAJOR.MINOR.PATCH[-label] (example: "1.4.0-beta")`, c.Version)}
	}
	switch c.Protocol {
	case "http", "https":
	default:
		return &spec.GenError{Code: spec.ConfigError, Key: "GATEWAY_PROTOCOL",
			Message: fmt.Sprintf(`config: GATEWAY_PROTOCOL %q must be "http" or "https" (example: "https")`, c.Protocol)}
	}
	if strings.TrimSpace(c.ProjectID) == "" {
		return &spec.GenError{Code: spec.ConfigError, Key: "GATEWAY_PROJECT_ID",
			Message: `config: GATEWAY_PROJECT_ID must not be empty (example: "acme-prod")`}
	}
	if c.RateLimit <= 0 {
		return &spec.GenError{Code: spec.ConfigError, Key: "GATEWAY_RATE_LIMIT",
			Message: fmt.Sprintf(`config: GATEWAY_RATE_LIMIT %d must be a positive integer (example: "5000")`, c.RateLimit)}
	}
	return nil
}

// Backend is one externally supplied service address, keyed by the candidate
// service name derived from the environment variable prefix.
type Backend struct {
	Key       string // the full environment key, for error reporting
	Candidate string // normalized service name candidate (lowercase, hyphens)
	URL       string
}

// Backends extracts every <PREFIX>_BACKEND_URL entry from environ (as
// returned by os.Environ) and validates each as a well-formed http/https URL.
// A malformed URL is a fatal configuration error.
func Backends(environ []string) ([]Backend, error) {
	var out []Backend
	for _, kv := range environ {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			continue
		}
		key, value := kv[:eq], kv[eq+1:]
		if !strings.HasSuffix(key, backendSuffix) || key == backendSuffix {
			continue
		}
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, &spec.GenError{Code: spec.ConfigError, Key: key,
				Message: fmt.Sprintf(`config: %s=%q is not a valid http/https URL (example: "https://users-api.internal:8443")`, key, value)}
		}
		out = append(out, Backend{
			Key:       key,
			Candidate: CandidateName(strings.TrimSuffix(key, backendSuffix)),
			URL:       strings.TrimRight(value, "/"),
		})
	}
	return out, nil
}

// CandidateName normalizes an environment prefix into a workspace project
// name candidate: USERS_API -> users-api.
func CandidateName(prefix string) string {
	return strings.ReplaceAll(strings.ToLower(prefix), "_", "-")
}

// LoadEnviron is a convenience that reads backends from the current process
// environment.
func LoadEnviron() ([]Backend, error) {
	return Backends(os.Environ())
}
