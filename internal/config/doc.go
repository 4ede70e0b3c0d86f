// Package config loads console configuration from YAML.
//
// Files may reference environment variables as ${VAR}; they are expanded
// before parsing. Missing optional values receive defaults, required values
// are checked by Validate.
package config
