// Package history provides a bounded linear undo/redo manager over
// immutable snapshots of an arbitrary value.
//
// A Manager holds at most MaxHistorySize entries (configurable) and a
// cursor. Recording a state after one or more Undo calls discards the redo
// branch. Undo and Redo at either boundary are silent no-ops.
//
//	h := history.New(0)
//	h.Set(1)
//	h.Set(2)
//	h.Undo()          // State() == 1, CanRedo() == true
//	h.Set(3)          // State() == 3, CanRedo() == false
//
// Values are stored as given. Callers that keep slices or maps in history
// must treat every snapshot as immutable and build a new value per change.
package history
