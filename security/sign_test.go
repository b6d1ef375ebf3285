package security

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/gopenpgp/v3/crypto"
	"github.com/sigstore/sigstore/pkg/cryptoutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/l3montree-dev/devkit/utils"
)

func TestSignBlob(t *testing.T) {
	runner := mockRunner(t)
	runner.On("Run", mock.Anything, utils.CommandOptions{
		Name:         "cosign",
		Args:         []string{"sign-blob", "--yes", "--key", "cosign.key", "--output-signature", "dist/app.tgz.sig", "--tlog-upload=false", "dist/app.tgz"},
		Env:          []string{"COSIGN_PASSWORD=secret"},
		ThrowOnError: true,
	}).Return(utils.CommandResult{}, nil)

	sig, err := SignBlob(context.Background(), CosignOptions{Key: "cosign.key", File: "dist/app.tgz", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "dist/app.tgz.sig", sig)

	_, err = SignBlob(context.Background(), CosignOptions{File: "dist/app.tgz"})
	assert.Error(t, err)
}

func TestSignWithGPG(t *testing.T) {
	t.Run("armored with key id", func(t *testing.T) {
		runner := mockRunner(t)
		runner.On("Run", mock.Anything, utils.CommandOptions{
			Name:         "gpg",
			Args:         []string{"--batch", "--yes", "--local-user", "ABCDEF", "--armor", "--detach-sign", "--output", "release.tgz.asc", "release.tgz"},
			ThrowOnError: true,
		}).Return(utils.CommandResult{}, nil)

		out, err := SignWithGPG(context.Background(), GPGOptions{KeyID: "ABCDEF", File: "release.tgz", Armor: true})
		require.NoError(t, err)
		assert.Equal(t, "release.tgz.asc", out)
	})

	t.Run("binary default key", func(t *testing.T) {
		runner := mockRunner(t)
		runner.On("Run", mock.Anything, utils.CommandOptions{
			Name:         "gpg",
			Args:         []string{"--batch", "--yes", "--detach-sign", "--output", "release.tgz.sig", "release.tgz"},
			ThrowOnError: true,
		}).Return(utils.CommandResult{}, nil)

		out, err := SignWithGPG(context.Background(), GPGOptions{File: "release.tgz"})
		require.NoError(t, err)
		assert.Equal(t, "release.tgz.sig", out)
	})
}

func TestPGPSignAndVerify(t *testing.T) {
	key, err := crypto.PGP().KeyGeneration().AddUserId("Release Bot", "release@example.com").New().GenerateKey()
	require.NoError(t, err)
	armoredPrivate, err := key.Armor()
	require.NoError(t, err)
	armoredPublic, err := key.GetArmoredPublicKey()
	require.NoError(t, err)

	data := []byte("artifact content")
	sig, err := SignWithPGPKey(armoredPrivate, nil, data)
	require.NoError(t, err)
	assert.Contains(t, string(sig), "BEGIN PGP SIGNATURE")

	assert.NoError(t, VerifyPGPSignature(armoredPublic, data, sig))
	assert.Error(t, VerifyPGPSignature(armoredPublic, []byte("tampered"), sig))

	_, err = SignWithPGPKey(armoredPublic, nil, data)
	assert.Error(t, err)
}

func TestVerifyBlob(t *testing.T) {
	dir := t.TempDir()
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	pubPEM, err := cryptoutils.MarshalPublicKeyToPEM(&privateKey.PublicKey)
	require.NoError(t, err)

	artifact := filepath.Join(dir, "artifact.bin")
	require.NoError(t, os.WriteFile(artifact, []byte("binary"), 0o600))

	digest := sha256.Sum256([]byte("binary"))
	sig, err := ecdsa.SignASN1(rand.Reader, privateKey, digest[:])
	require.NoError(t, err)
	sigFile := filepath.Join(dir, "artifact.bin.sig")
	require.NoError(t, os.WriteFile(sigFile, []byte(base64.StdEncoding.EncodeToString(sig)), 0o600))

	assert.NoError(t, VerifyBlob(context.Background(), pubPEM, artifact, sigFile))

	require.NoError(t, os.WriteFile(artifact, []byte("changed"), 0o600))
	assert.Error(t, VerifyBlob(context.Background(), pubPEM, artifact, sigFile))

	assert.Error(t, VerifyBlob(context.Background(), []byte("not a key"), artifact, sigFile))
}
