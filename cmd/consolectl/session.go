package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const tokenFileName = ".clinic-console-token"

var errNoSession = errors.New("no saved session, run `consolectl login` first")

// tokenPath resolves where the session token lives. An explicit path wins
// over the home directory default.
func tokenPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, tokenFileName), nil
}

func loadToken(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", errNoSession
	}
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", errNoSession
	}
	return token, nil
}

func saveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}

func clearToken(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
