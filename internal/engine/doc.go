// Package engine runs the pending pieces of one machine.
//
// The scheduler turns the ledger records owed by a machine into an ordered
// list of steps and executes them one at a time:
//
//  1. execute bulk groups (one group per bulk kind, in kind order)
//  2. execute non-bulk records (ledger order)
//  3. undo bulk groups
//  4. undo non-bulk records
//
// A bulk group is all-or-nothing: the capability is called once for the
// whole group and either every member is marked or none is. Non-bulk
// records are marked one by one as they succeed. The first failing step
// stops the run; everything marked before it stays marked so that the
// caller can persist the partial progress.
//
// Step outcomes are returned explicitly and the scheduler applies the
// marks itself. Capabilities never touch the ledger.
//
// Every step is stamped with a sequence number from the Clock and offered
// to an optional Recorder (the local execution journal).
package engine
