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

package security

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

// RegistryLogin verifies the credentials against the registry and stores them in the docker
// credential store, so docker, cosign and syft pick them up.
func RegistryLogin(ctx context.Context, username, password, registryURL string) error {
	if username == "" || password == "" || registryURL == "" {
		return errors.New("username, password and registry are required to log in")
	}
	registryURL = strings.TrimPrefix(strings.TrimPrefix(registryURL, "https://"), "http://")

	store, err := credentials.NewStoreFromDocker(credentials.StoreOptions{
		AllowPlaintextPut:        true,
		DetectDefaultNativeStore: true,
	})
	if err != nil {
		return errors.Wrap(err, "could not open docker credential store")
	}

	err = credentials.Login(ctx, store, &remote.Registry{
		RepositoryOptions: remote.RepositoryOptions{
			Reference: registry.Reference{
				Registry: registryURL,
			},
		},
	}, auth.Credential{
		Username: username,
		Password: password,
	})
	return errors.Wrapf(err, "could not log in to %s", registryURL)
}
