package config

import (
	"fmt"
	"time"
)

// Config is the top-level graphd server configuration.
type Config struct {
	// Host is the bind address. Defaults to "0.0.0.0".
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	// Port is the HTTP listen port. Defaults to 4290.
	Port int `json:"port,omitempty" yaml:"port,omitempty"`
	// Path is the URL path the GraphQL WebSocket endpoint is served on.
	// Defaults to "/graphql".
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// SchemaFile is the path to a GraphQL SDL schema file. When empty the
	// built-in demo schema is served.
	SchemaFile string `json:"schemaFile,omitempty" yaml:"schemaFile,omitempty"`

	// InitTimeout is how long a connection may stay unacknowledged before
	// it is closed (e.g. "3s"). Defaults to 3s.
	InitTimeout Duration `json:"initTimeout,omitempty" yaml:"initTimeout,omitempty"`
	// WriteTimeout bounds a single outbound frame write (e.g. "10s").
	WriteTimeout Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`

	// AllowedOrigins lists origins authorized to connect. Empty means
	// same-host only unless SkipOriginVerify is set.
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
	// SkipOriginVerify disables Origin verification during the upgrade.
	SkipOriginVerify bool `json:"skipOriginVerify,omitempty" yaml:"skipOriginVerify,omitempty"`

	// Auth configures connection authentication.
	Auth AuthConfig `json:"auth,omitempty" yaml:"auth,omitempty"`
	// Log configures logging.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`
}

// AuthConfig configures connection-init authentication.
type AuthConfig struct {
	// Secret is the HMAC secret used to validate connection tokens. Empty
	// disables authentication.
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"`
}

// LogConfig configures logging output.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `json:"level,omitempty" yaml:"level,omitempty"`
	// Format is the output format (text, json).
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Duration is a time.Duration that unmarshals from strings like "250ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.parse(s)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the default server configuration.
func Default() *Config {
	return &Config{
		Host: "0.0.0.0",
		Port: 4290,
		Path: "/graphql",
	}
}

// Validate checks the configuration for inconsistencies and fills defaults.
func (c *Config) Validate() error {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 4290
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Path == "" {
		c.Path = "/graphql"
	}
	if c.Path[0] != '/' {
		return fmt.Errorf("path must start with /: %q", c.Path)
	}
	if c.InitTimeout < 0 {
		return fmt.Errorf("initTimeout must not be negative")
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("writeTimeout must not be negative")
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
