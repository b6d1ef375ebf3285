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
	"github.com/ProtonMail/gopenpgp/v3/crypto"
	"github.com/ProtonMail/gopenpgp/v3/profile"
	"github.com/pkg/errors"
)

// SignWithPGPKey creates an armored detached signature without a gpg installation.
// The passphrase is only used when the key is locked.
func SignWithPGPKey(armoredKey string, passphrase []byte, data []byte) ([]byte, error) {
	pgp := crypto.PGPWithProfile(profile.RFC4880())

	privateKey, err := crypto.NewKeyFromArmored(armoredKey)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse private key")
	}
	if !privateKey.IsPrivate() {
		return nil, errors.New("the given key is not a private key")
	}

	locked, err := privateKey.IsLocked()
	if err != nil {
		return nil, errors.Wrap(err, "could not check if the key is locked")
	}
	if locked {
		privateKey, err = privateKey.Unlock(passphrase)
		if err != nil {
			return nil, errors.Wrap(err, "could not unlock private key")
		}
	}
	defer privateKey.ClearPrivateParams()

	signer, err := pgp.Sign().SigningKey(privateKey).Detached().New()
	if err != nil {
		return nil, errors.Wrap(err, "could not create signer")
	}
	signature, err := signer.Sign(data, crypto.Armor)
	if err != nil {
		return nil, errors.Wrap(err, "could not sign data")
	}
	return signature, nil
}

// VerifyPGPSignature checks an armored detached signature.
func VerifyPGPSignature(armoredPublicKey string, data []byte, signature []byte) error {
	pgp := crypto.PGP()

	publicKey, err := crypto.NewKeyFromArmored(armoredPublicKey)
	if err != nil {
		return errors.Wrap(err, "could not parse public key")
	}

	verifier, err := pgp.Verify().VerificationKey(publicKey).New()
	if err != nil {
		return errors.Wrap(err, "could not create verifier")
	}
	res, err := verifier.VerifyDetached(data, signature, crypto.Armor)
	if err != nil {
		return errors.Wrap(err, "could not verify signature")
	}
	if sigErr := res.SignatureError(); sigErr != nil {
		return errors.Wrap(sigErr, "invalid signature")
	}
	return nil
}
