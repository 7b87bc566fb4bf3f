package pane

import (
	"context"
	"fmt"
	"sync"

	"dualfm/internal/fault"
	"dualfm/internal/logging"
)

// Pane binds a backend to a current location and the entries listed there.
type Pane struct {
	name    string
	backend Backend
	list    *List

	mu       sync.Mutex
	location string
}

// RenderData is everything a renderer needs to draw a pane.
type RenderData struct {
	Entries  []Entry
	Cursor   int
	Resource string
	Provider string
	Location string
}

// Title renders the pane header as resource@provider:location.
func (r RenderData) Title() string {
	return fmt.Sprintf("%s@%s:%s", r.Resource, r.Provider, r.Location)
}

// New creates a pane called name (used in logs) over backend, starting at
// location. The pane is empty until the first Refresh.
func New(name string, backend Backend, location string) *Pane {
	return &Pane{
		name:     name,
		backend:  backend,
		list:     NewList(),
		location: location,
	}
}

// Name returns the pane name given to New.
func (p *Pane) Name() string { return p.name }

// Backend returns the storage backend.
func (p *Pane) Backend() Backend { return p.backend }

// Domain returns the error domain of the backend.
func (p *Pane) Domain() string { return p.backend.Domain() }

// Location returns the current location.
func (p *Pane) Location() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.location
}

func (p *Pane) setLocation(loc string) {
	p.mu.Lock()
	p.location = loc
	p.mu.Unlock()
}

// Refresh replaces the entries with a fresh listing of the current location.
// On failure the entries are left untouched.
func (p *Pane) Refresh(ctx context.Context) error {
	loc := p.Location()
	entries, err := p.backend.List(ctx, loc)
	if err != nil {
		logging.L().Debug().Str("pane", p.name).Str("location", loc).Err(err).Msg("refresh failed")
		return fault.Ensure(p.Domain(), err).WithFile(loc)
	}
	// A navigation that happened while listing makes this listing stale.
	if p.Location() != loc {
		return nil
	}
	p.list.Replace(entries)
	logging.L().Debug().Str("pane", p.name).Str("location", loc).Int("entries", len(entries)).Msg("refreshed")
	return nil
}

// NavigateIntoSelected moves the location into the directory under the
// cursor. It does not refresh; the caller must, and should call NavigateOut
// if that refresh fails. Returns false when nothing changed.
func (p *Pane) NavigateIntoSelected() bool {
	cur, ok := p.list.Current()
	if !ok || cur.Kind != KindDirectory {
		return false
	}
	next, ok := p.backend.Into(p.Location(), cur.Name)
	if !ok {
		return false
	}
	p.setLocation(next)
	p.list.ClearCursor()
	return true
}

// NavigateOut moves the location to its parent. It does not refresh.
// Returns false at the root.
func (p *Pane) NavigateOut() bool {
	next, ok := p.backend.Out(p.Location())
	if !ok {
		return false
	}
	p.setLocation(next)
	p.list.ClearCursor()
	return true
}

// Restore sets the location back to loc after a failed navigation.
func (p *Pane) Restore(loc string) {
	p.setLocation(loc)
}

// RestoreIf sets the location back to prev only while it is still target,
// the location a failed navigation moved to. A later navigation wins.
func (p *Pane) RestoreIf(target, prev string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.location != target {
		return false
	}
	p.location = prev
	p.list.ClearCursor()
	return true
}

// FileStream opens name in the current location.
func (p *Pane) FileStream(ctx context.Context, name string) (*Stream, error) {
	return p.FileStreamAt(ctx, p.Location(), name)
}

// FileStreamAt opens name under dir.
func (p *Pane) FileStreamAt(ctx context.Context, dir, name string) (*Stream, error) {
	s, err := p.backend.Open(ctx, dir, name)
	if err != nil {
		return nil, p.fileErr(dir, name, err)
	}
	return s, nil
}

// PutFile writes s as name in the current location.
func (p *Pane) PutFile(ctx context.Context, name string, s *Stream) error {
	return p.PutFileAt(ctx, p.Location(), name, s)
}

// PutFileAt writes s as name under dir. If dir is still the location being
// shown, the new file is added to the entries without a full refresh.
func (p *Pane) PutFileAt(ctx context.Context, dir, name string, s *Stream) error {
	if err := p.backend.Put(ctx, dir, name, s); err != nil {
		return p.fileErr(dir, name, err)
	}
	if p.Location() == dir {
		p.list.Insert(name, KindFile)
	}
	return nil
}

// DeleteFile removes name from the current location.
func (p *Pane) DeleteFile(ctx context.Context, name string) error {
	return p.DeleteFileAt(ctx, p.Location(), name)
}

// DeleteFileAt removes name under dir, dropping it from the entries when dir
// is the location being shown.
func (p *Pane) DeleteFileAt(ctx context.Context, dir, name string) error {
	if err := p.backend.Delete(ctx, dir, name); err != nil {
		return p.fileErr(dir, name, err)
	}
	if p.Location() == dir {
		p.list.Remove(name)
	}
	return nil
}

func (p *Pane) fileErr(dir, name string, err error) error {
	return fault.Ensure(p.Domain(), err).WithFile(p.backend.Join(dir, name))
}

// MarkProcessing flags name as busy.
func (p *Pane) MarkProcessing(name string) {
	p.list.SetState(name, Processing)
}

// ClearProcessing removes the busy flag from name.
func (p *Pane) ClearProcessing(name string) {
	p.list.Reset(name, Processing)
}

// Selected returns the names marked with state, in list order.
func (p *Pane) Selected(state State) []string {
	return p.list.Selected(state)
}

// Current returns the entry under the cursor.
func (p *Pane) Current() (Entry, bool) { return p.list.Current() }

// Next moves the cursor down.
func (p *Pane) Next() { p.list.Next() }

// Previous moves the cursor up.
func (p *Pane) Previous() { p.list.Previous() }

// Toggle applies a selection key to the entry under the cursor.
func (p *Pane) Toggle(state State) { p.list.ToggleCurrent(state) }

// ResourceLabel names what the pane browses.
func (p *Pane) ResourceLabel() string { return p.backend.Resource() }

// ProviderLabel names the backend kind.
func (p *Pane) ProviderLabel() string { return p.backend.Provider() }

// View snapshots the pane for rendering.
func (p *Pane) View() RenderData {
	entries, cursor := p.list.Snapshot()
	return RenderData{
		Entries:  entries,
		Cursor:   cursor,
		Resource: p.backend.Resource(),
		Provider: p.backend.Provider(),
		Location: p.Location(),
	}
}
