package operations

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/l3montree-dev/devkit/mocks"
	"github.com/l3montree-dev/devkit/utils"
)

func mockRunner(t *testing.T) *mocks.CommandRunner {
	runner := mocks.NewCommandRunner(t)
	old := utils.Runner
	utils.Runner = runner
	t.Cleanup(func() { utils.Runner = old })
	return runner
}

func TestGenerateEnvExample(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("# local settings\nDATABASE_URL=postgres://user:pw@localhost/db\nAPP_NAME=\"my app\"\nPORT=8080\n"), 0o600))

	keys, err := GenerateEnvExample(envPath, filepath.Join(dir, ".env.example"), []string{"PORT", "APP_NAME"})
	require.NoError(t, err)
	assert.Equal(t, []string{"APP_NAME", "DATABASE_URL", "PORT"}, keys)

	b, err := os.ReadFile(filepath.Join(dir, ".env.example"))
	require.NoError(t, err)
	assert.Equal(t, "APP_NAME=\"my app\"\nDATABASE_URL=\nPORT=8080\n", string(b))
}

func TestGenerateEnvExampleKeepsEscapedValues(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	examplePath := filepath.Join(dir, ".env.example")
	require.NoError(t, os.WriteFile(envPath, []byte(`TOOLS_DIR='"x64" C:\tools'`+"\n"), 0o600))

	env, err := godotenv.Read(envPath)
	require.NoError(t, err)
	require.Equal(t, `"x64" C:\tools`, env["TOOLS_DIR"])

	_, err = GenerateEnvExample(envPath, examplePath, []string{"TOOLS_DIR"})
	require.NoError(t, err)

	example, err := godotenv.Read(examplePath)
	require.NoError(t, err)
	assert.Equal(t, env["TOOLS_DIR"], example["TOOLS_DIR"])
}

func TestMissingEnvKeys(t *testing.T) {
	dir := t.TempDir()
	examplePath := filepath.Join(dir, ".env.example")
	require.NoError(t, os.WriteFile(examplePath, []byte("A=\nB=\nC=default\n"), 0o600))

	t.Run("should list the keys the env file lacks", func(t *testing.T) {
		envPath := filepath.Join(dir, ".env")
		require.NoError(t, os.WriteFile(envPath, []byte("B=1\nEXTRA=2\n"), 0o600))

		missing, err := MissingEnvKeys(envPath, examplePath)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "C"}, missing)
	})

	t.Run("should treat a missing env file as empty", func(t *testing.T) {
		missing, err := MissingEnvKeys(filepath.Join(dir, "does-not-exist"), examplePath)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, missing)
	})
}

func TestBootstrap(t *testing.T) {
	old := lookPath
	t.Cleanup(func() { lookPath = old })

	t.Run("should fail if a required tool is missing", func(t *testing.T) {
		lookPath = func(name string) bool { return name == "git" }

		report, err := Bootstrap(context.Background(), BootstrapOptions{Dir: t.TempDir(), RequiredTools: []string{"git", "node", "docker"}})
		require.Error(t, err)
		assert.Equal(t, []string{"node", "docker"}, report.MissingTools)
		assert.Contains(t, err.Error(), "node, docker")
	})

	t.Run("should copy the env file and install the dependencies", func(t *testing.T) {
		lookPath = func(string) bool { return true }
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.example"), []byte("PORT=8080\n"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "pnpm-lock.yaml"), []byte(""), 0o600))

		runner := mockRunner(t)
		runner.On("Run", mock.Anything, utils.CommandOptions{Name: "pnpm", Args: []string{"install"}, Dir: dir, ThrowOnError: true}).
			Return(utils.CommandResult{}, nil).Once()

		report, err := Bootstrap(context.Background(), BootstrapOptions{Dir: dir, RequiredTools: []string{"pnpm"}, CopyEnv: true, Install: true})
		require.NoError(t, err)
		assert.Empty(t, report.MissingTools)
		assert.True(t, report.EnvCreated)
		assert.True(t, report.Installed)

		b, err := os.ReadFile(filepath.Join(dir, ".env"))
		require.NoError(t, err)
		assert.Equal(t, "PORT=8080\n", string(b))
	})

	t.Run("should not overwrite an existing env file", func(t *testing.T) {
		lookPath = func(string) bool { return true }
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.example"), []byte("PORT=8080\n"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=1\n"), 0o600))

		report, err := Bootstrap(context.Background(), BootstrapOptions{Dir: dir, CopyEnv: true})
		require.NoError(t, err)
		assert.False(t, report.EnvCreated)

		b, err := os.ReadFile(filepath.Join(dir, ".env"))
		require.NoError(t, err)
		assert.Equal(t, "PORT=1\n", string(b))
	})
}
