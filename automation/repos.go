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

package automation

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/l3montree-dev/devkit/utils"
)

// DiscoverRepos returns every directory below root that contains a .git entry, sorted. maxDepth
// limits how deep the search goes, root itself is depth 0. Repositories are not searched for
// nested repositories.
func DiscoverRepos(root string, maxDepth int) ([]string, error) {
	root = filepath.Clean(root)
	var repos []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && slices.Contains(utils.IgnoredDirs, d.Name()) {
			return filepath.SkipDir
		}
		if utils.FileExists(filepath.Join(path, ".git")) {
			repos = append(repos, path)
			return filepath.SkipDir
		}
		if depth(root, path) >= maxDepth {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not search %s", root)
	}
	slices.Sort(repos)
	return repos, nil
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

type CloneResult struct {
	URL     string
	Path    string
	Skipped bool
	Err     error
}

// RepoName derives the directory name from a clone url.
func RepoName(url string) string {
	url = strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	if i := strings.LastIndexAny(url, "/:"); i >= 0 {
		url = url[i+1:]
	}
	return url
}

// CloneRepos shallow clones every url into dir/<repo-name>. Existing directories are skipped.
func CloneRepos(ctx context.Context, urls []string, dir string, concurrency int) ([]CloneResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create %s", dir)
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	results := make([]CloneResult, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, url := range urls {
		g.Go(func() error {
			path := filepath.Join(dir, RepoName(url))
			results[i] = CloneResult{URL: url, Path: path}
			if utils.FileExists(path) {
				results[i].Skipped = true
				slog.Info("skipping existing repository", "path", path)
				return nil
			}

			_, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
				URL:          url,
				Depth:        1,
				SingleBranch: true,
			})
			if err != nil {
				_ = os.RemoveAll(path)
				results[i].Err = errors.Wrapf(err, "could not clone %s", url)
				return nil
			}
			slog.Info("cloned repository", "url", url, "path", path)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}
