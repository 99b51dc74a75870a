// Package vcs reads the source-control revision recorded with each
// run.
package vcs

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var (
	// ErrNotRepository is returned when dir is not inside a git
	// repository.
	ErrNotRepository = errors.New("not a git repository")
	// ErrNoCommits is returned for a repository without any
	// commit on HEAD.
	ErrNoCommits = errors.New("repository has no commits")
)

// HeadCommit returns the full hash of HEAD for the repository
// containing dir.
func HeadCommit(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return "", fmt.Errorf("%w: %s", ErrNotRepository, dir)
	}
	if err != nil {
		return "", fmt.Errorf("opening repository: %w", err)
	}

	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", ErrNoCommits
	}
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}
