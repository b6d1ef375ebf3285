package release

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/l3montree-dev/devkit/deps"
	"github.com/l3montree-dev/devkit/gitutil"
	"github.com/l3montree-dev/devkit/mocks"
	"github.com/l3montree-dev/devkit/utils"
)

func mockLister(t *testing.T) *mocks.GitLister {
	lister := mocks.NewGitLister(t)
	old := gitutil.Lister
	gitutil.Lister = lister
	t.Cleanup(func() { gitutil.Lister = old })
	return lister
}

func TestCreateReleaseTag(t *testing.T) {
	t.Run("should create and push the tag", func(t *testing.T) {
		lister := mockLister(t)
		lister.On("GetTags", ".").Return([]string{"v1.0.0"}, nil)
		lister.On("CreateTag", ".", "v1.1.0", "Release v1.1.0", true).Return(nil)
		lister.On("PushTag", ".", "origin", "v1.1.0").Return(nil)

		tag, err := CreateReleaseTag(context.Background(), ".", "1.1.0", TagOptions{Sign: true, Push: true})
		require.NoError(t, err)
		assert.Equal(t, "v1.1.0", tag)
	})

	t.Run("should refuse existing tags", func(t *testing.T) {
		lister := mockLister(t)
		lister.On("GetTags", ".").Return([]string{"v1.0.0"}, nil)

		_, err := CreateReleaseTag(context.Background(), ".", "v1.0.0", TagOptions{})
		assert.Error(t, err)
	})
}

func TestPublish(t *testing.T) {
	runner := mocks.NewCommandRunner(t)
	old := utils.Runner
	utils.Runner = runner
	t.Cleanup(func() { utils.Runner = old })

	runner.On("Run", mock.Anything, utils.CommandOptions{
		Name:         "pnpm",
		Args:         []string{"publish", "--tag", "next", "--access", "public", "--dry-run"},
		Dir:          "packages/ui",
		ThrowOnError: true,
	}).Return(utils.CommandResult{Stdout: "+ @acme/ui@1.1.0"}, nil)

	res, err := Publish(context.Background(), PublishOptions{Dir: "packages/ui", PackageManager: deps.PNPM, Tag: "next", Access: "public", DryRun: true})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "@acme/ui@1.1.0")

	_, err = Publish(context.Background(), PublishOptions{PackageManager: deps.NPM, Access: "everyone"})
	assert.Error(t, err)
}
