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

package release

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3montree-dev/devkit/utils"
)

func TestInitChangesetsConfig(t *testing.T) {
	t.Run("writes config and readme once", func(t *testing.T) {
		dir := t.TempDir()

		written, err := InitChangesets(dir, DefaultChangesetConfig())
		require.NoError(t, err)
		assert.True(t, written)
		assert.True(t, utils.FileExists(filepath.Join(dir, ".changeset", "README.md")))

		written, err = InitChangesets(dir, DefaultChangesetConfig())
		require.NoError(t, err)
		assert.False(t, written)

		cfg, err := ReadChangesetConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "main", cfg.BaseBranch)
		assert.Equal(t, "restricted", cfg.Access)
	})

	t.Run("rejects an invalid access", func(t *testing.T) {
		cfg := DefaultChangesetConfig()
		cfg.Access = "everyone"

		_, err := InitChangesets(t.TempDir(), cfg)
		assert.Error(t, err)
	})

	t.Run("fails to read a missing config", func(t *testing.T) {
		_, err := ReadChangesetConfig(t.TempDir())
		assert.Error(t, err)
	})
}
