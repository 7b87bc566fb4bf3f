// Package pane holds the state behind one side of the dual-pane browser:
// the listed entries, their selection marks, the cursor and the storage
// backend they were listed from.
package pane

// Kind is the type of a listed item.
type Kind int

const (
	KindFile Kind = iota
	KindDirectory
	// KindUnknown marks items whose metadata could not be read.
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// State is the selection mark carried by an entry.
type State int

const (
	Unselected State = iota
	Processing
	ToMove
	ToDelete
	ToCopy
)

func (s State) String() string {
	switch s {
	case Processing:
		return "processing"
	case ToMove:
		return "move"
	case ToDelete:
		return "delete"
	case ToCopy:
		return "copy"
	default:
		return "unselected"
	}
}

// Tag is the short marker appended to an entry name when rendered.
func (s State) Tag() string {
	switch s {
	case Processing:
		return "[/]"
	case ToMove:
		return "[M]"
	case ToDelete:
		return "[D]"
	case ToCopy:
		return "[C]"
	default:
		return ""
	}
}

// Entry is one listed item. Directory names end in "/".
type Entry struct {
	Name  string
	Kind  Kind
	State State
}

// Toggle applies a selection key press. Processing is forced regardless of
// the current mark; any other request marks an unselected entry and clears a
// marked one. Only files accept marks.
func (e *Entry) Toggle(requested State) {
	if requested == Processing {
		e.State = Processing
		return
	}
	if e.Kind != KindFile {
		return
	}
	if e.State == Unselected {
		e.State = requested
		return
	}
	e.State = Unselected
}
