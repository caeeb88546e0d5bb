package domain

import (
	"fmt"
	"path/filepath"
)

// RenameTask is the filesystem operation implied by one change log entry.
// It is derived on demand and never persisted.
type RenameTask struct {
	Seq       int64
	ContentID ContentID
	From      string
	To        string
}

// NoOp reports whether the task would not move anything
func (t RenameTask) NoOp() bool {
	return t.From == t.To
}

func (t RenameTask) String() string {
	return fmt.Sprintf("%s: %s -> %s", t.ContentID.Short(), t.From, t.To)
}

// DeriveRenameTask combines a change log entry with the other, unchanged path
// component as it was when the entry was written.
func DeriveRenameTask(e ChangeLogEntry, other string) (RenameTask, error) {
	task := RenameTask{Seq: e.Seq, ContentID: e.ContentID}
	switch e.Column {
	case ColumnName:
		task.From = filepath.Join(other, e.OldValue)
		task.To = filepath.Join(other, e.NewValue)
	case ColumnLocation:
		task.From = filepath.Join(e.OldValue, other)
		task.To = filepath.Join(e.NewValue, other)
	default:
		return RenameTask{}, fmt.Errorf("change #%d: column %q has no filesystem implication", e.Seq, e.Column)
	}
	return task, nil
}
