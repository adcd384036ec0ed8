package board

import "errors"

var (
	ErrBoardNotFound   = errors.New("board not found")
	ErrInvalidColumn   = errors.New("invalid column")
	ErrTaskNotFound    = errors.New("task not found")
	ErrSubtaskNotFound = errors.New("subtask not found")
	ErrInvalidField    = errors.New("invalid task field")

	// ErrNotPermutation rejects a column order whose id set differs from
	// the column's current task ids.
	ErrNotPermutation = errors.New("column order is not a permutation of the column's tasks")

	// ErrUnsupportedVersion is returned by Load for snapshots written by a newer build.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)

// errNoChange aborts a mutation without persisting anything.
var errNoChange = errors.New("no change")
