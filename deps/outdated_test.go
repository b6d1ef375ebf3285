package deps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/l3montree-dev/devkit/normalize"
	"github.com/l3montree-dev/devkit/utils"
)

func TestOutdated(t *testing.T) {
	t.Run("should parse npm output sorted by name and classify the bump", func(t *testing.T) {
		runner := mockRunner(t)
		runner.On("Run", mock.Anything, utils.CommandOptions{Name: "npm", Args: []string{"outdated", "--json"}, Dir: "."}).
			Return(utils.CommandResult{ExitCode: 1, Stdout: `{
  "react": {"current": "17.0.2", "wanted": "17.0.2", "latest": "18.2.0"},
  "axios": {"current": "1.6.0", "wanted": "1.6.8", "latest": "1.7.2"},
  "left-pad": {"wanted": "1.3.0", "latest": "1.3.0"}
}`}, nil)

		pkgs, err := Outdated(context.Background(), ".", NPM)
		require.NoError(t, err)
		require.Len(t, pkgs, 3)

		assert.Equal(t, "axios", pkgs[0].Name)
		assert.Equal(t, normalize.BumpMinor, pkgs[0].Bump)
		assert.Equal(t, "left-pad", pkgs[1].Name)
		assert.Equal(t, normalize.BumpNone, pkgs[1].Bump)
		assert.Equal(t, "react", pkgs[2].Name)
		assert.Equal(t, normalize.BumpMajor, pkgs[2].Bump)
	})

	t.Run("should use --format json for pnpm", func(t *testing.T) {
		runner := mockRunner(t)
		runner.On("Run", mock.Anything, utils.CommandOptions{Name: "pnpm", Args: []string{"outdated", "--format", "json"}, Dir: "."}).
			Return(utils.CommandResult{}, nil)

		pkgs, err := Outdated(context.Background(), ".", PNPM)
		require.NoError(t, err)
		assert.Empty(t, pkgs)
	})

	t.Run("should fail on exit codes above 1", func(t *testing.T) {
		runner := mockRunner(t)
		runner.On("Run", mock.Anything, mock.Anything).Return(utils.CommandResult{ExitCode: 254, Stderr: "no package.json"}, nil)

		_, err := Outdated(context.Background(), ".", NPM)
		require.Error(t, err)
		var cmdErr *utils.CommandError
		assert.ErrorAs(t, err, &cmdErr)
	})
}

func TestParseOutdatedOutputYarn(t *testing.T) {
	out := `{"type":"info","data":"Color legend"}
{"type":"table","data":{"head":["Package","Current","Wanted","Latest","Package Type","URL"],"body":[["chalk","4.1.2","4.1.2","5.3.0","dependencies","https://github.com/chalk/chalk"]]}}`

	pkgs, err := ParseOutdatedOutput(Yarn, []byte(out))
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, OutdatedPackage{Name: "chalk", Current: "4.1.2", Wanted: "4.1.2", Latest: "5.3.0", Bump: normalize.BumpMajor}, pkgs[0])
}
