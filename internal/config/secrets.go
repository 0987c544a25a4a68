package config

import (
	"fmt"
	"os"
	"strings"
)

// SecretSource describes where a secret comes from. File wins over Value.
type SecretSource struct {
	Name  string
	Value string
	File  string
}

// LoadSecret returns the trimmed secret or an error when neither source
// holds one.
func LoadSecret(src SecretSource) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		return "", fmt.Errorf("%s is not configured", name)
	}
	return secret, nil
}
