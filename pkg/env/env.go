package env

import (
	"os"
	"strings"
)

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// InstanceID names this process in logs. MODA_INSTANCE_ID wins over
// HOSTNAME; fallback is used when neither is set.
func InstanceID(fallback string) string {
	return Get("MODA_INSTANCE_ID", Get("HOSTNAME", fallback))
}
