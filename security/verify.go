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
	"bytes"
	"context"
	"crypto"
	"encoding/base64"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sigstore/sigstore/pkg/cryptoutils"
	"github.com/sigstore/sigstore/pkg/signature"
	"github.com/sigstore/sigstore/pkg/signature/options"
)

// VerifyBlob checks a signature as written by cosign sign-blob against a PEM encoded public key.
// The signature file contains the base64 encoded signature, raw signatures are accepted as well.
func VerifyBlob(ctx context.Context, publicKeyPEM []byte, file string, signatureFile string) error {
	pubKey, err := cryptoutils.UnmarshalPEMToPublicKey(publicKeyPEM)
	if err != nil {
		return errors.Wrap(err, "could not parse public key")
	}
	verifier, err := signature.LoadVerifier(pubKey, crypto.SHA256)
	if err != nil {
		return errors.Wrap(err, "could not load verifier")
	}

	rawSig, err := os.ReadFile(signatureFile)
	if err != nil {
		return errors.Wrap(err, "could not read signature")
	}
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(rawSig)))
	if err != nil {
		sig = rawSig
	}

	artifact, err := os.Open(file)
	if err != nil {
		return errors.Wrap(err, "could not open artifact")
	}
	defer artifact.Close()

	if err := verifier.VerifySignature(bytes.NewReader(sig), artifact, options.WithContext(ctx)); err != nil {
		return errors.Wrap(err, "could not verify signature")
	}
	return nil
}
