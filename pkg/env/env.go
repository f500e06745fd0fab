// Package env reads process environment variables with fallbacks. It exists
// for the few places (logger defaults) that need a value before the full
// config package has been loaded.
package env

import "os"

// Get returns the value of the given environment variable or a fallback.
// An empty value counts as unset.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
