package app

import (
	"context"
	"fmt"
)

// Push commits and pushes edits to tracked files after showing their diff
// and asking for confirmation. It reports whether anything was pushed.
// A local edit to a file the remote also changed replaces the remote
// version; the diff shown is against the remote version.
func (s *Service) Push(ctx context.Context) (bool, error) {
	if err := s.inst.PullKeepingLocalAndRead(ctx, true); err != nil {
		return false, fmt.Errorf("push: %w", err)
	}
	r := s.inst.Repository()
	changed, err := r.ChangedFiles(ctx)
	if err != nil {
		return false, fmt.Errorf("push: %w", err)
	}
	if len(changed) == 0 {
		s.logger.Info("no changed files to push")
		return false, nil
	}

	diff, err := r.Diff(ctx, changed)
	if err != nil {
		return false, fmt.Errorf("push: %w", err)
	}
	ok, err := s.prompter.Confirm(fmt.Sprintf("%s\nPush these changes?", diff))
	if err != nil {
		return false, fmt.Errorf("push: %w", err)
	}
	if !ok {
		return false, fmt.Errorf("push: %w", ErrAborted)
	}

	if _, err := r.WriteAndPush(ctx, "Update tracked files", changed); err != nil {
		return false, fmt.Errorf("push: %w", err)
	}
	return true, nil
}
