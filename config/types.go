package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds the remote host connection details
type ServerConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds the token endpoint and the credentials handed to the
// login module. Both credentials may stay empty when the login surface is
// expected to collect them.
type AuthConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// DispatchConfig tunes fan-out and re-authentication behavior
type DispatchConfig struct {
	Fanout         string `mapstructure:"fanout"`
	CoalesceReauth bool   `mapstructure:"coalesce_reauth"`
}

// FilterConfig contains response filter presets
type FilterConfig struct {
	Presets           map[string]string `mapstructure:"presets"`
	DefaultExpression string            `mapstructure:"default_expression"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
