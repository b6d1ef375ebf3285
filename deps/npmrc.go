// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package deps

import (
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ReadNpmrc returns the key value pairs of an .npmrc file. Comments and lines without "=" are ignored.
// A missing file yields an empty map.
func ReadNpmrc(path string) (map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, errors.Wrap(err, "could not read .npmrc")
	}

	entries := map[string]string{}
	for line := range strings.SplitSeq(string(content), "\n") {
		key, value, ok := parseNpmrcLine(line)
		if ok {
			entries[key] = value
		}
	}
	return entries, nil
}

func parseNpmrcLine(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
		return "", "", false
	}
	key, value, ok := strings.Cut(trimmed, "=")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}

// SetNpmrcEntries updates existing keys in place and appends new keys in sorted order.
// Every other line is written back as it was.
func SetNpmrcEntries(path string, entries map[string]string) error {
	var lines []string
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		lines = strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
		if len(lines) == 1 && lines[0] == "" {
			lines = nil
		}
	case os.IsNotExist(err):
	default:
		return errors.Wrap(err, "could not read .npmrc")
	}

	seen := map[string]bool{}
	for i, line := range lines {
		key, _, ok := parseNpmrcLine(line)
		if !ok {
			continue
		}
		if value, update := entries[key]; update {
			lines[i] = key + "=" + value
			seen[key] = true
		}
	}

	keys := make([]string, 0, len(entries))
	for key := range entries {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		lines = append(lines, key+"="+entries[key])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "could not create directory for .npmrc")
	}
	return errors.Wrap(os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600), "could not write .npmrc")
}

// RegistryAuthKey returns the .npmrc key holding the auth token of registry,
// e.g. "//npm.pkg.github.com/:_authToken".
func RegistryAuthKey(registry string) (string, error) {
	host, path, err := registryHostPath(registry)
	if err != nil {
		return "", err
	}
	return "//" + host + path + ":_authToken", nil
}

func registryHostPath(registry string) (string, string, error) {
	if !strings.Contains(registry, "://") {
		registry = "https://" + registry
	}
	u, err := url.Parse(registry)
	if err != nil {
		return "", "", errors.Wrapf(err, "invalid registry url %s", registry)
	}
	if u.Host == "" {
		return "", "", errors.Errorf("invalid registry url %s", registry)
	}
	path := u.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return u.Host, path, nil
}

type RegistryConfig struct {
	Registry string
	// Scope like "@my-org". Empty configures the default registry.
	Scope string
	// TokenEnv names the environment variable npm reads the token from.
	TokenEnv string
}

// ConfigureRegistry points the scope (or the default registry) at cfg.Registry and references the
// token through an environment variable, so no secret ends up in the file.
func ConfigureRegistry(path string, cfg RegistryConfig) error {
	host, p, err := registryHostPath(cfg.Registry)
	if err != nil {
		return err
	}
	registryURL := cfg.Registry
	if !strings.Contains(registryURL, "://") {
		registryURL = "https://" + host + p
	}

	entries := map[string]string{}
	if cfg.Scope != "" {
		scope := cfg.Scope
		if !strings.HasPrefix(scope, "@") {
			scope = "@" + scope
		}
		entries[scope+":registry"] = registryURL
	} else {
		entries["registry"] = registryURL
	}
	if cfg.TokenEnv != "" {
		entries["//"+host+p+":_authToken"] = "${" + cfg.TokenEnv + "}"
	}
	return SetNpmrcEntries(path, entries)
}
