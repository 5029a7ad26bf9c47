// Package config provides configuration types and utilities for axle's CLI
// and embedding applications. This file handles environment references
// inside loaded YAML: `${VAR}`, `${VAR:-default}`, and bare `$VAR` forms,
// plus .env file loading.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// envRefPattern matches one environment reference. The alternation is
// ordered most-specific-first so ${VAR:-default} isn't half-consumed by the
// plain ${VAR} arm.
var envRefPattern = regexp.MustCompile(
	`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}` + // ${VAR:-default}
		`|\$\{([A-Z_][A-Z0-9_]*)\}` + // ${VAR}
		`|\$([A-Z_][A-Z0-9_]*)`) // $VAR

// expandEnvRefs substitutes every environment reference in s. An unset
// variable resolves to its :-default when one is given, otherwise to the
// empty string.
func expandEnvRefs(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}
	return envRefPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envRefPattern.FindStringSubmatch(match)
		switch {
		case groups[1] != "": // ${VAR:-default}
			if v := os.Getenv(groups[1]); v != "" {
				return v
			}
			return groups[2]
		case groups[3] != "": // ${VAR}
			return os.Getenv(groups[3])
		default: // $VAR
			return os.Getenv(groups[4])
		}
	})
}

// coerceScalar re-types an expanded string so that an env var holding "3" or
// "true" lands in the YAML tree as the number or boolean the schema expects.
func coerceScalar(value string) interface{} {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

// ExpandEnvVarsInData walks a decoded YAML tree, expanding environment
// references in every string. A string that was changed by expansion is
// additionally coerced (number/boolean) so env-sourced values keep the type
// the config schema expects.
func ExpandEnvVarsInData(data interface{}) interface{} {
	switch v := data.(type) {
	case string:
		expanded := expandEnvRefs(v)
		if expanded != v {
			return coerceScalar(expanded)
		}
		return v

	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			out[key] = ExpandEnvVarsInData(value)
		}
		return out

	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = ExpandEnvVarsInData(item)
		}
		return out

	default:
		return v
	}
}

// LoadEnvFiles loads .env.local then .env into the process environment.
// Existing process variables win over file entries (godotenv semantics), and
// a missing file is not an error.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return nil
}
