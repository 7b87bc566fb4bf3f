package pane

import "sync"

// List is the ordered entry collection of a pane together with its cursor.
// It is safe for concurrent use: transfer goroutines patch it while the UI
// loop moves the cursor.
type List struct {
	mu      sync.Mutex
	entries []Entry
	cursor  int // -1 when nothing is under the cursor
}

// NewList returns an empty list without a cursor.
func NewList() *List {
	return &List{cursor: -1}
}

// Replace swaps in a fresh listing. The cursor survives if it still points
// inside the new entries.
func (l *List) Replace(entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
	if l.cursor >= len(l.entries) {
		l.cursor = -1
	}
}

// Len returns the number of entries.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Next moves the cursor down, wrapping to the top.
func (l *List) Next() {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.entries)
	if n == 0 {
		return
	}
	switch {
	case l.cursor < 0:
		l.cursor = 0
	case l.cursor >= n-1:
		l.cursor = 0
	default:
		l.cursor++
	}
}

// Previous moves the cursor up, wrapping to the bottom.
func (l *List) Previous() {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.entries)
	if n == 0 {
		return
	}
	switch {
	case l.cursor < 0:
		l.cursor = 0
	case l.cursor == 0:
		l.cursor = n - 1
	default:
		l.cursor--
	}
}

// ClearCursor removes the cursor.
func (l *List) ClearCursor() {
	l.mu.Lock()
	l.cursor = -1
	l.mu.Unlock()
}

// Cursor returns the cursor index and whether one is set.
func (l *List) Cursor() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor, l.cursor >= 0
}

// Current returns a copy of the entry under the cursor.
func (l *List) Current() (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cursor < 0 || l.cursor >= len(l.entries) {
		return Entry{}, false
	}
	return l.entries[l.cursor], true
}

// ToggleCurrent applies a selection key press to the entry under the cursor.
func (l *List) ToggleCurrent(requested State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cursor < 0 || l.cursor >= len(l.entries) {
		return
	}
	l.entries[l.cursor].Toggle(requested)
}

// SetState toggles the entry called name towards state. Returns false when
// no such entry is listed.
func (l *List) SetState(name string, state State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].Name == name {
			l.entries[i].Toggle(state)
			return true
		}
	}
	return false
}

// Reset puts the entry called name back to Unselected if it currently holds
// from. Marks applied by the user in the meantime are left alone.
func (l *List) Reset(name string, from State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.entries {
		if l.entries[i].Name == name && l.entries[i].State == from {
			l.entries[i].State = Unselected
			return true
		}
	}
	return false
}

// Selected returns, in list order, the names of entries marked with state.
func (l *List) Selected(state State) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var names []string
	for _, e := range l.entries {
		if e.State == state {
			names = append(names, e.Name)
		}
	}
	return names
}

// Insert appends an unselected entry unless one with the same name exists.
func (l *List) Insert(name string, kind Kind) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Name == name {
			return
		}
	}
	l.entries = append(l.entries, Entry{Name: name, Kind: kind})
}

// Remove drops the entry called name. A cursor below the removed entry
// shifts up by one; a cursor on it is cleared.
func (l *List) Remove(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := -1
	for i, e := range l.entries {
		if e.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	l.entries = append(l.entries[:idx], l.entries[idx+1:]...)
	switch {
	case l.cursor < 0:
	case idx < l.cursor:
		l.cursor--
	case idx == l.cursor:
		l.cursor = -1
	}
}

// Snapshot returns a copy of the entries and the cursor (-1 when unset).
func (l *List) Snapshot() ([]Entry, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out, l.cursor
}
