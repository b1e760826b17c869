package config

import (
	"gfx.cafe/util/go/gun"
)

// Env holds SQLPOOL_* overrides. Empty values leave the file config alone.
type Env struct {
	Driver         string `env:"SQLPOOL_DRIVER"`
	URL            string `env:"SQLPOOL_URL"`
	Username       string `env:"SQLPOOL_USERNAME"`
	Password       string `env:"SQLPOOL_PASSWORD"`
	MinConnections int    `env:"SQLPOOL_MIN_CONNECTIONS"`
	MaxConnections int    `env:"SQLPOOL_MAX_CONNECTIONS"`
	MetricsAddress string `env:"SQLPOOL_METRICS_ADDRESS"`
	TraceEndpoint  string `env:"SQLPOOL_TRACE_ENDPOINT"`
}

func LoadEnv() Env {
	var env Env
	gun.Load(&env)
	return env
}

func (T *Config) ApplyEnv(env Env) {
	if env.Driver != "" {
		T.Driver = env.Driver
	}
	if env.URL != "" {
		T.URL = env.URL
	}
	if env.Username != "" {
		T.Username = env.Username
	}
	if env.Password != "" {
		T.Password = env.Password
	}
	if env.MinConnections != 0 {
		T.MinConnections = env.MinConnections
	}
	if env.MaxConnections != 0 {
		T.MaxConnections = env.MaxConnections
	}
	if env.MetricsAddress != "" {
		T.MetricsAddress = env.MetricsAddress
	}
	if env.TraceEndpoint != "" {
		T.Tracing.Endpoint = env.TraceEndpoint
	}
}
