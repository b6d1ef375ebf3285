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

package gitutil

import (
	"log/slog"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"
)

type Commit struct {
	Hash    string
	Message string
	Author  string
	Email   string
	Date    time.Time
}

// ShortHash returns the first seven characters of the hash.
func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// CommitsSince returns the commits reachable from HEAD but not from tag, newest first, like
// git log tag..HEAD. An empty tag returns the whole history.
func CommitsSince(path string, tag string) ([]Commit, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrap(err, "could not open git repository")
	}

	head, err := repo.Head()
	if err != nil {
		return nil, errors.Wrap(err, "could not resolve HEAD")
	}

	released := map[plumbing.Hash]struct{}{}
	if tag != "" {
		stop, err := tagCommit(repo, tag)
		if err != nil {
			return nil, errors.Wrapf(err, "could not resolve tag %s", tag)
		}
		released, err = reachableFrom(repo, stop)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read history of tag %s", tag)
		}
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, errors.Wrap(err, "could not read git log")
	}
	defer iter.Close()

	var commits []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if _, ok := released[c.Hash]; ok {
			return nil
		}
		commits = append(commits, Commit{
			Hash:    c.Hash.String(),
			Message: c.Message,
			Author:  c.Author.Name,
			Email:   c.Author.Email,
			Date:    c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("read commit history", "path", path, "since", tag, "commits", len(commits))
	return commits, nil
}

func reachableFrom(repo *git.Repository, from plumbing.Hash) (map[plumbing.Hash]struct{}, error) {
	iter, err := repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	seen := map[plumbing.Hash]struct{}{}
	err = iter.ForEach(func(c *object.Commit) error {
		seen[c.Hash] = struct{}{}
		return nil
	})
	return seen, err
}

// tagCommit peels annotated tags down to the commit they point to.
func tagCommit(repo *git.Repository, tag string) (plumbing.Hash, error) {
	ref, err := repo.Tag(tag)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	tagObj, err := repo.TagObject(ref.Hash())
	switch {
	case err == nil:
		c, err := tagObj.Commit()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return c.Hash, nil
	case errors.Is(err, plumbing.ErrObjectNotFound):
		// lightweight tag
		return ref.Hash(), nil
	default:
		return plumbing.ZeroHash, err
	}
}

// ConventionalCommitsSince parses the history since tag and drops every commit that is not
// a conventional commit.
func ConventionalCommitsSince(path string, tag string) ([]ConventionalCommit, error) {
	commits, err := CommitsSince(path, tag)
	if err != nil {
		return nil, err
	}

	res := make([]ConventionalCommit, 0, len(commits))
	for _, c := range commits {
		cc, err := ParseConventionalCommit(c.Message)
		if err != nil {
			slog.Debug("skipping non conventional commit", "hash", c.ShortHash())
			continue
		}
		cc.Hash = c.Hash
		res = append(res, cc)
	}
	return res, nil
}
