// Package repo is the synchronized repository: a git working tree holding
// ledger.yaml and the files/ subtree, shared between machines through a
// single remote branch.
//
// Synchronization is fast-forward only. Pull either finds nothing new,
// fast-forwards, or reports ErrSyncConflict and leaves everything as it
// was. Resolving a conflict is left to the operator.
//
// All git access goes through the git CLI (see Git).
package repo
