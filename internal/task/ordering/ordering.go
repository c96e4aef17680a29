// Package ordering computes task positions on a board. Every function is
// pure: callers load the current slots, plan, and persist the returned
// changes in one transaction.
//
// Within a column, positions form the dense sequence 0..n-1. Input slots
// are ordered by (Position, Seq, ID) before renumbering, so columns that
// already carry gaps or duplicate positions come out dense as well.
package ordering

import (
	"errors"
	"sort"
)

// ErrTaskNotInSource is returned when the moved task is absent from the
// source column slots.
var ErrTaskNotInSource = errors.New("ordering: task not in source column")

// Slot is a task's place on the board.
type Slot struct {
	ID       string
	ColumnID string
	Position int
	// Seq breaks ties between equal positions; creation time in unix nanos.
	Seq int64
}

// Sort orders slots by position, then Seq, then ID.
func Sort(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.ID < b.ID
	})
}

// Densify renumbers one column's slots to 0..n-1 and returns the slots
// whose position changed.
func Densify(slots []Slot) []Slot {
	ordered := clone(slots)
	Sort(ordered)
	var changed []Slot
	for i, s := range ordered {
		if s.Position != i {
			s.Position = i
			changed = append(changed, s)
		}
	}
	return changed
}

// Remove takes taskID out of a column and returns the renumbering of what
// remains.
func Remove(slots []Slot, taskID string) ([]Slot, error) {
	ordered := clone(slots)
	Sort(ordered)
	idx := indexOf(ordered, taskID)
	if idx < 0 {
		return nil, ErrTaskNotInSource
	}
	rest := append(ordered[:idx:idx], ordered[idx+1:]...)
	var changed []Slot
	for i, s := range rest {
		if s.Position != i {
			s.Position = i
			changed = append(changed, s)
		}
	}
	return changed, nil
}

// Clamp bounds index to [0, n].
func Clamp(index, n int) int {
	if index < 0 {
		return 0
	}
	if index > n {
		return n
	}
	return index
}

// Plan moves taskID from the source column to index in targetColumnID.
// source holds every slot of the task's current column; target holds every
// slot of the target column and is ignored when the target is the source
// column. The index is clamped against the target length after the task has
// been removed. Plan returns every slot whose column or position changed,
// the moved task included when it changed, and the final order of the
// target column.
func Plan(source, target []Slot, taskID, targetColumnID string, index int) (changed []Slot, final []Slot, err error) {
	src := clone(source)
	Sort(src)
	idx := indexOf(src, taskID)
	if idx < 0 {
		return nil, nil, ErrTaskNotInSource
	}
	moved := src[idx]
	sourceColumnID := moved.ColumnID
	remaining := append(src[:idx:idx], src[idx+1:]...)

	original := make(map[string]Slot, len(src)+len(target))
	for _, s := range src {
		original[s.ID] = s
	}

	var dst []Slot
	sameColumn := targetColumnID == sourceColumnID
	if sameColumn {
		dst = remaining
	} else {
		dst = clone(target)
		Sort(dst)
		for _, s := range dst {
			original[s.ID] = s
		}
	}

	at := Clamp(index, len(dst))
	final = make([]Slot, 0, len(dst)+1)
	final = append(final, dst[:at]...)
	final = append(final, moved)
	final = append(final, dst[at:]...)

	record := func(s Slot, columnID string, pos int) Slot {
		s.ColumnID = columnID
		s.Position = pos
		if prev := original[s.ID]; prev.ColumnID != columnID || prev.Position != pos {
			changed = append(changed, s)
		}
		return s
	}

	if !sameColumn {
		for i, s := range remaining {
			record(s, sourceColumnID, i)
		}
	}
	for i, s := range final {
		final[i] = record(s, targetColumnID, i)
	}
	return changed, final, nil
}

// IsDense reports whether slots carry exactly the positions 0..n-1.
func IsDense(slots []Slot) bool {
	seen := make([]bool, len(slots))
	for _, s := range slots {
		if s.Position < 0 || s.Position >= len(slots) || seen[s.Position] {
			return false
		}
		seen[s.Position] = true
	}
	return true
}

// AppendPosition is the position a new task takes at the end of a column
// once slots have been densified.
func AppendPosition(slots []Slot) int {
	return len(slots)
}

func indexOf(slots []Slot, id string) int {
	for i, s := range slots {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func clone(slots []Slot) []Slot {
	out := make([]Slot, len(slots))
	copy(out, slots)
	return out
}
