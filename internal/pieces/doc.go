// Package pieces implements the machine-local side effects of each piece
// kind behind two capability shapes.
//
// Bulk kinds (apt) execute or undo a whole group of pieces in one call, so
// the group succeeds or fails as a unit. Single kinds (command, file,
// manual) handle one piece per call. The scheduler in package engine only
// sees these two shapes; adding a kind means implementing one of them and
// registering it.
//
// Every call receives an ExecContext value carrying the machine, the files
// directory of the repository and the test-run flag.
package pieces
