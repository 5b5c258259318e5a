// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads ranking-service credentials from a directory of
// plain-text files and from a .env file. In the directory, each file is one
// secret: the filename is the key name and the trimmed contents are the value.
//
// Supported key files: openai-api-key, anthropic-api-key.
package secrets

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pdiddy/digest-ranker/pkg/types"
)

// Key file names.
const (
	OpenAIKeyFile    = "openai-api-key"
	AnthropicKeyFile = "anthropic-api-key"
)

// Environment variables consulted when no key file is present.
const (
	OpenAIKeyEnv    = "OPENAI_API_KEY"
	AnthropicKeyEnv = "ANTHROPIC_API_KEY"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, eris.Wrapf(err, "secrets: read directory %s", dir)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			zap.L().Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadDotEnv sets variables from the .env file at path without overriding
// ones already in the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return eris.Wrapf(err, "secrets: load %s", path)
}

// APIKeyFor returns the credential for provider, preferring the key file in
// loaded over the environment. Providers that need no key return "".
func APIKeyFor(provider types.Provider, loaded map[string]string) string {
	var file, env string
	switch provider {
	case types.ProviderOpenAI, "":
		file, env = OpenAIKeyFile, OpenAIKeyEnv
	case types.ProviderAnthropic:
		file, env = AnthropicKeyFile, AnthropicKeyEnv
	default:
		return ""
	}

	if v, ok := loaded[file]; ok {
		return v
	}
	return os.Getenv(env)
}
