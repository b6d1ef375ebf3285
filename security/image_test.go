package security

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/registry"
	"github.com/google/go-containerregistry/pkg/v1/random"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushRandomImage(t *testing.T) (string, string) {
	server := httptest.NewServer(registry.New())
	t.Cleanup(server.Close)

	image := fmt.Sprintf("%s/team/app:1.0.0", strings.TrimPrefix(server.URL, "http://"))
	ref, err := name.ParseReference(image)
	require.NoError(t, err)

	img, err := random.Image(256, 1)
	require.NoError(t, err)
	require.NoError(t, remote.Write(ref, img))

	digest, err := img.Digest()
	require.NoError(t, err)
	return image, digest.String()
}

func TestResolveDigest(t *testing.T) {
	image, digest := pushRandomImage(t)

	resolved, err := ResolveDigest(context.Background(), image)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(resolved, "/team/app@"+digest))

	again, err := ResolveDigest(context.Background(), resolved)
	require.NoError(t, err)
	assert.Equal(t, resolved, again)

	_, err = ResolveDigest(context.Background(), "UPPER/case:tag")
	assert.Error(t, err)
}

func TestImageSignatureCount(t *testing.T) {
	image, _ := pushRandomImage(t)

	count, err := ImageSignatureCount(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
