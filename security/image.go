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
	"net/http"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/pkg/errors"
	ociremote "github.com/sigstore/cosign/v2/pkg/oci/remote"
)

func remoteOptions(ctx context.Context) []remote.Option {
	return []remote.Option{
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(authn.DefaultKeychain),
	}
}

// ResolveDigest turns a tag reference into repo@sha256:... Digest references are returned as they are.
func ResolveDigest(ctx context.Context, image string) (string, error) {
	ref, err := name.ParseReference(image)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse image reference")
	}
	if d, ok := ref.(name.Digest); ok {
		return d.String(), nil
	}

	desc, err := remote.Head(ref, remoteOptions(ctx)...)
	if err != nil {
		return "", errors.Wrapf(err, "could not resolve digest of %s", image)
	}
	return ref.Context().Digest(desc.Digest.String()).String(), nil
}

// ImageSignatureCount returns how many cosign signatures are attached to the image.
func ImageSignatureCount(ctx context.Context, image string) (int, error) {
	digestRef, err := ResolveDigest(ctx, image)
	if err != nil {
		return 0, err
	}
	ref, err := name.ParseReference(digestRef)
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse image reference")
	}

	opts := ociremote.WithRemoteOptions(remoteOptions(ctx)...)
	sigTag, err := ociremote.SignatureTag(ref, opts)
	if err != nil {
		return 0, errors.Wrap(err, "could not compute signature tag")
	}
	sigs, err := ociremote.Signatures(sigTag, opts)
	if err != nil {
		var terr *transport.Error
		if errors.As(err, &terr) && terr.StatusCode == http.StatusNotFound {
			return 0, nil
		}
		return 0, errors.Wrap(err, "could not fetch signatures")
	}
	list, err := sigs.Get()
	if err != nil {
		return 0, errors.Wrap(err, "could not read signatures")
	}
	return len(list), nil
}
