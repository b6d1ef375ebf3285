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

package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type baseConfig struct {
	Path           string `json:"path" mapstructure:"path"`
	LogLevel       string `json:"logLevel" mapstructure:"logLevel"`
	Timeout        int    `json:"timeout" mapstructure:"timeout"`
	PackageManager string `json:"packageManager" mapstructure:"packageManager"`
	FailOn         string `json:"failOn" mapstructure:"failOn"`

	Registry string `json:"registry" mapstructure:"registry"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`

	Offline bool `json:"offline" mapstructure:"offline"`
}

var RuntimeBaseConfig baseConfig

func ParseBaseConfig() error {
	RuntimeBaseConfig = baseConfig{}
	if err := viper.Unmarshal(&RuntimeBaseConfig); err != nil {
		return errors.Wrap(err, "could not parse config")
	}

	if RuntimeBaseConfig.Path == "" {
		RuntimeBaseConfig.Path = "."
	}
	if err := isValidPath(RuntimeBaseConfig.Path); err != nil {
		return err
	}

	if RuntimeBaseConfig.Registry != "" {
		RuntimeBaseConfig.Registry = sanitizeRegistryURL(RuntimeBaseConfig.Registry)
	}

	if RuntimeBaseConfig.Timeout <= 0 {
		RuntimeBaseConfig.Timeout = 300
	}
	return nil
}

func (c baseConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
