package config

import (
	"time"
)

// DefaultRequestTimeout mirrors the hosting platform's request ceiling.
const DefaultRequestTimeout = 30 * time.Second

func GetPort() string {
	return GetEnvOrDefault("PORT", "8080")
}

// GetRequestTimeout returns the deadline applied to every generation request
func GetRequestTimeout() time.Duration {
	return parseEnvDuration("REQUEST_TIMEOUT", DefaultRequestTimeout)
}

func GetLogLevel() string {
	return GetEnvOrDefault("LOG_LEVEL", "info")
}

func GetLogPretty() bool {
	return parseEnvBool("LOG_PRETTY", false)
}
