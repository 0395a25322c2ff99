package repo

import "errors"

var (
	// ErrSyncConflict is returned by Pull when local and remote history
	// diverged and a fast-forward is impossible.
	ErrSyncConflict = errors.New("repo: local and remote history diverged; resolve the conflict manually")

	// ErrLocalChanges is returned by Pull when uncommitted edits under
	// files/ touch paths the remote also changed.
	ErrLocalChanges = errors.New("repo: local edits to tracked files collide with remote changes; run push to keep the local versions")

	// ErrCorrupt is returned when the ledger in the working tree differs
	// from the committed one, which means it was edited by hand.
	ErrCorrupt = errors.New("repo: repository is corrupt; the ledger has uncommitted changes")

	// ErrRemoteNotEmpty is returned by a new Init against a remote that
	// already has branches.
	ErrRemoteNotEmpty = errors.New("repo: remote is not empty")

	// ErrOutsideFiles is returned by ChangedFiles when uncommitted changes
	// exist outside files/.
	ErrOutsideFiles = errors.New("repo: uncommitted changes outside files/")
)
