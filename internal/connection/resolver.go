// Package connection classifies connection references and resolves symbolic
// ones against a named-connections file.
//
// A reference is either a literal connection string ("postgres://...",
// "sqlite://app.db", ...) or a symbolic indirection of the form "Name=X".
// Symbolic references are looked up in a YAML file mapping names to
// connection strings:
//
//	connections:
//	  Chinook: postgres://scaffold@localhost/chinook
//	  Billing: ${ENV:BILLING_DB_URL}
//
// Values may defer to an environment variable with the ${ENV:VAR} form so the
// file itself never has to hold credentials.
package connection

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the connections file consulted when no explicit path is set.
const DefaultPath = "~/.dbscaffold/connections.yaml"

const namedPrefix = "Name="

// ConfigurationError reports a symbolic reference with no matching entry in
// the connections file.
type ConfigurationError struct {
	Name string
	Path string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("no connection named %q found in %s", e.Name, e.Path)
}

// NamedReference reports whether ref is a symbolic "Name=X" reference and, if
// so, returns the name.
func NamedReference(ref string) (string, bool) {
	if !strings.HasPrefix(ref, namedPrefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(ref, namedPrefix)), true
}

// FileResolver resolves symbolic references against a YAML connections file.
// Literal references pass through unchanged. The zero value reads DefaultPath.
type FileResolver struct {
	Path string
}

type connectionsFile struct {
	Connections map[string]string `yaml:"connections"`
}

// Resolve returns the concrete connection string for the given reference.
// Literal references are returned unchanged. Symbolic references fail with a
// *ConfigurationError when no entry matches.
func (r *FileResolver) Resolve(reference string) (string, error) {
	name, ok := NamedReference(reference)
	if !ok {
		return reference, nil
	}

	path := r.Path
	if path == "" {
		path = expandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &ConfigurationError{Name: name, Path: path}
		}
		return "", fmt.Errorf("reading connections file: %w", err)
	}

	var file connectionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return "", fmt.Errorf("parsing connections file %s: %w", path, err)
	}

	value, ok := file.Connections[name]
	if !ok {
		return "", &ConfigurationError{Name: name, Path: path}
	}

	return resolveValue(value)
}

var envPattern = regexp.MustCompile(`\$\{ENV:([^}]+)\}`)

// resolveValue expands every ${ENV:VAR} indirection in a connection string
// value. Any unset variable fails the whole resolution.
func resolveValue(val string) (string, error) {
	var missing string
	expanded := envPattern.ReplaceAllStringFunc(val, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		v := os.Getenv(name)
		if v == "" && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("environment variable %s not set", missing)
	}
	return expanded, nil
}

// expandHome expands ~ to the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
