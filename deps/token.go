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
	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
)

const keyringUser = "devkit"

func keyringService(registry string) (string, error) {
	host, _, err := registryHostPath(registry)
	if err != nil {
		return "", err
	}
	return "devkit/" + host, nil
}

// StoreRegistryToken saves the token in the keyring of the operating system.
func StoreRegistryToken(registry string, token string) error {
	service, err := keyringService(registry)
	if err != nil {
		return err
	}
	return errors.Wrap(keyring.Set(service, keyringUser, token), "could not store token in keyring")
}

func RegistryToken(registry string) (string, error) {
	service, err := keyringService(registry)
	if err != nil {
		return "", err
	}
	token, err := keyring.Get(service, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", errors.Wrapf(err, "no token stored for %s", registry)
		}
		return "", errors.Wrap(err, "could not read token from keyring")
	}
	return token, nil
}

func DeleteRegistryToken(registry string) error {
	service, err := keyringService(registry)
	if err != nil {
		return err
	}
	return errors.Wrap(keyring.Delete(service, keyringUser), "could not delete token from keyring")
}
