package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"dualfm/internal/fault"
	"dualfm/internal/pane"
	"dualfm/internal/storage/objstore"
	"dualfm/internal/transfer"
)

type fixture struct {
	model  DualPaneModel
	left   *objstore.MemoryClient
	right  *objstore.MemoryClient
	stack  *fault.Stack
	runner *transfer.Runner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	left := objstore.NewMemoryClient("src")
	left.Seed("a.txt", []byte("A"))
	left.Seed("b.txt", []byte("BB"))
	left.Seed("docs/c.txt", []byte("CCC"))
	right := objstore.NewMemoryClient("dst")

	lp := pane.New("left", objstore.New(left), "")
	rp := pane.New("right", objstore.New(right), "")
	for _, p := range []*pane.Pane{lp, rp} {
		if err := p.Refresh(context.Background()); err != nil {
			t.Fatalf("refresh: %v", err)
		}
	}

	stack := fault.NewStack()
	runner := transfer.NewRunner(stack)
	m := NewDualPaneModel(context.Background(), lp, rp, stack, runner)
	m.width, m.height = 100, 30
	return &fixture{model: m, left: left, right: right, stack: stack, runner: runner}
}

func (f *fixture) press(t *testing.T, msgs ...tea.KeyMsg) tea.Cmd {
	t.Helper()
	var last tea.Cmd
	for _, msg := range msgs {
		next, cmd := f.model.Update(msg)
		f.model = next.(DualPaneModel)
		last = cmd
	}
	return last
}

// runCmd executes cmd and any batch it expands to.
func runCmd(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, c := range batch {
			runCmd(c)
		}
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	keyDown      = tea.KeyMsg{Type: tea.KeyDown}
	keyUp        = tea.KeyMsg{Type: tea.KeyUp}
	keyTab       = tea.KeyMsg{Type: tea.KeyTab}
	keyEnter     = tea.KeyMsg{Type: tea.KeyEnter}
	keySpace     = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	keyBackspace = tea.KeyMsg{Type: tea.KeyBackspace}
	keyEsc       = tea.KeyMsg{Type: tea.KeyEsc}
)

func current(t *testing.T, p *pane.Pane) string {
	t.Helper()
	cur, ok := p.Current()
	if !ok {
		t.Fatal("no cursor")
	}
	return cur.Name
}

// ---------------------------------------------------------------------------
// Focus and cursor
// ---------------------------------------------------------------------------

func TestTabSwitchesFocus(t *testing.T) {
	f := newFixture(t)
	f.press(t, keyTab)
	if f.model.focus != sideRight {
		t.Errorf("after Tab, focus = %v, want right", f.model.focus)
	}
	f.press(t, keyTab)
	if f.model.focus != sideLeft {
		t.Errorf("after second Tab, focus = %v, want left", f.model.focus)
	}
}

func TestArrowKeysPickPane(t *testing.T) {
	f := newFixture(t)
	f.press(t, tea.KeyMsg{Type: tea.KeyRight})
	if f.model.focus != sideRight {
		t.Errorf("focus = %v, want right", f.model.focus)
	}
	f.press(t, runes("h"))
	if f.model.focus != sideLeft {
		t.Errorf("focus = %v, want left", f.model.focus)
	}
}

func TestCursorMovesOnFocusedPaneOnly(t *testing.T) {
	f := newFixture(t)
	f.press(t, keyDown, keyDown)
	if got := current(t, f.model.panes[sideLeft]); got != "b.txt" {
		t.Errorf("left cursor on %q, want b.txt", got)
	}
	if _, ok := f.model.panes[sideRight].Current(); ok {
		t.Error("right pane cursor should not move")
	}
}

func TestVimKeysWrap(t *testing.T) {
	f := newFixture(t)
	f.press(t, runes("j"), runes("k"))
	// j lands on the first entry, k from the first wraps to the last.
	if got := current(t, f.model.panes[sideLeft]); got != "docs/" {
		t.Errorf("cursor on %q, want docs/", got)
	}
	f.press(t, keyUp)
	if got := current(t, f.model.panes[sideLeft]); got != "b.txt" {
		t.Errorf("cursor on %q, want b.txt", got)
	}
}

// ---------------------------------------------------------------------------
// Marks
// ---------------------------------------------------------------------------

func TestMarkKeysToggle(t *testing.T) {
	f := newFixture(t)
	f.press(t, keyDown, runes("c"))
	if got := f.model.panes[sideLeft].Selected(pane.ToCopy); len(got) != 1 || got[0] != "a.txt" {
		t.Fatalf("copy marks = %v", got)
	}
	f.press(t, runes("c"))
	if got := f.model.panes[sideLeft].Selected(pane.ToCopy); len(got) != 0 {
		t.Errorf("second press should clear, got %v", got)
	}
}

func TestMarkDirectoryIgnored(t *testing.T) {
	f := newFixture(t)
	f.press(t, keyDown, keyDown, keyDown, runes("m"))
	if got := current(t, f.model.panes[sideLeft]); got != "docs/" {
		t.Fatalf("cursor on %q", got)
	}
	if got := f.model.panes[sideLeft].Selected(pane.ToMove); len(got) != 0 {
		t.Errorf("directory got marked: %v", got)
	}
}

// ---------------------------------------------------------------------------
// Execute
// ---------------------------------------------------------------------------

func TestEnterMovesMarkedFiles(t *testing.T) {
	f := newFixture(t)
	f.press(t, keyDown, runes("m"))
	cmd := f.press(t, keyEnter)
	if cmd == nil {
		t.Fatal("enter should return a command")
	}
	runCmd(cmd)
	f.runner.Wait()

	if _, ok := f.right.Data("a.txt"); !ok {
		t.Error("a.txt missing from destination")
	}
	if _, ok := f.left.Data("a.txt"); ok {
		t.Error("a.txt still in source")
	}
	if !f.stack.Empty() {
		t.Errorf("unexpected errors: %v", f.stack.Records())
	}
}

func TestSecondEnterIgnoredWhileIssuing(t *testing.T) {
	f := newFixture(t)
	f.press(t, keyDown, runes("m"))
	first := f.press(t, keyEnter)
	if first == nil {
		t.Fatal("enter should return a command")
	}
	if second := f.press(t, keyEnter); second != nil {
		t.Fatal("a second enter must not start another batch")
	}
	if !strings.Contains(f.model.View(), "issuing tasks") {
		t.Error("status line should show the batch being issued")
	}

	msg := first()
	f.runner.Wait()
	if got := f.right.Keys(); len(got) != 1 || got[0] != "a.txt" {
		t.Errorf("destination keys = %v", got)
	}
	if !f.stack.Empty() {
		t.Errorf("unexpected errors: %v", f.stack.Records())
	}

	next, _ := f.model.Update(msg)
	f.model = next.(DualPaneModel)
	if f.model.executing {
		t.Error("executedMsg should end the batch")
	}
	if cmd := f.press(t, keyEnter); cmd == nil {
		t.Error("enter should work again once the batch is issued")
	}
}

func TestEnterAcknowledgesErrorsFirst(t *testing.T) {
	f := newFixture(t)
	f.stack.Push("S3", fault.New("S3", fault.NotFound, "gone"))
	f.press(t, keyDown, runes("c"))
	// Marks are refused while errors are shown.
	if got := f.model.panes[sideLeft].Selected(pane.ToCopy); len(got) != 0 {
		t.Fatalf("mark applied while errors pending: %v", got)
	}
	cmd := f.press(t, keyEnter)
	if cmd != nil {
		t.Error("acknowledging should not start a batch")
	}
	if !f.stack.Empty() {
		t.Error("enter should clear the error stack")
	}
}

func TestFailedTransferReachesErrorScreen(t *testing.T) {
	f := newFixture(t)
	f.press(t, keyDown, runes("c"))
	// Remove the object behind the listing so the open fails.
	if err := f.left.Delete(context.Background(), "a.txt"); err != nil {
		t.Fatal(err)
	}
	runCmd(f.press(t, keyEnter))
	f.runner.Wait()

	if f.stack.Len() != 1 {
		t.Fatalf("stack has %d records, want 1", f.stack.Len())
	}
	view := f.model.View()
	if !strings.Contains(view, "Press ENTER to continue") {
		t.Error("error screen missing acknowledgment hint")
	}
	if !strings.Contains(view, "Memory Err: NoSuchKey") {
		t.Errorf("error screen missing record:\n%s", view)
	}
}

// ---------------------------------------------------------------------------
// Navigation
// ---------------------------------------------------------------------------

func TestSpaceEntersDirectory(t *testing.T) {
	f := newFixture(t)
	f.press(t, keyUp) // first entry
	f.press(t, keyUp) // wraps to docs/
	runCmd(f.press(t, keySpace))
	p := f.model.panes[sideLeft]
	if p.Location() != "docs/" {
		t.Fatalf("location = %q, want docs/", p.Location())
	}
	if got := p.View().Entries; len(got) != 1 || got[0].Name != "c.txt" {
		t.Errorf("entries = %+v", got)
	}
	runCmd(f.press(t, keyBackspace))
	if p.Location() != "" {
		t.Errorf("location after backspace = %q, want root", p.Location())
	}
}

func TestBackspaceAtRootIsNoop(t *testing.T) {
	f := newFixture(t)
	if cmd := f.press(t, keyBackspace); cmd != nil {
		t.Error("backspace at root should not schedule a refresh")
	}
}

func TestSpaceOnFileIsNoop(t *testing.T) {
	f := newFixture(t)
	f.press(t, keyDown)
	if cmd := f.press(t, keySpace); cmd != nil {
		t.Error("space on a file should do nothing")
	}
}

// failingList refuses to list one location.
type failingList struct {
	pane.Backend
	bad string
}

func (b failingList) List(ctx context.Context, loc string) ([]pane.Entry, error) {
	if loc == b.bad {
		return nil, fault.New("Memory", fault.PermissionDenied, "listing refused")
	}
	return b.Backend.List(ctx, loc)
}

func TestFailedNavigationRollsBack(t *testing.T) {
	f := newFixture(t)
	lp := pane.New("left", failingList{Backend: objstore.New(f.left), bad: "docs/"}, "")
	if err := lp.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.model.panes[sideLeft] = lp

	f.press(t, keyUp, keyUp)
	runCmd(f.press(t, keySpace))
	if lp.Location() != "" {
		t.Errorf("location = %q, want rollback to root", lp.Location())
	}
	if f.stack.Len() != 1 {
		t.Errorf("stack has %d records, want 1", f.stack.Len())
	}
}

func TestFailedNavigateOutRestores(t *testing.T) {
	f := newFixture(t)
	lp := pane.New("left", failingList{Backend: objstore.New(f.left), bad: ""}, "docs/")
	if err := lp.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.model.panes[sideLeft] = lp

	runCmd(f.press(t, keyBackspace))
	if lp.Location() != "docs/" {
		t.Errorf("location = %q, want docs/", lp.Location())
	}
	if f.stack.Len() != 1 {
		t.Errorf("stack has %d records, want 1", f.stack.Len())
	}
}

// gatedList blocks the listing of one location until released, then fails it.
type gatedList struct {
	pane.Backend
	gate    string
	entered chan struct{}
	release chan struct{}
}

func newGatedList(b pane.Backend, gate string) gatedList {
	return gatedList{Backend: b, gate: gate, entered: make(chan struct{}), release: make(chan struct{})}
}

func (b gatedList) List(ctx context.Context, loc string) ([]pane.Entry, error) {
	if loc == b.gate {
		close(b.entered)
		<-b.release
		return nil, fault.New("Memory", fault.Service, "listing timed out")
	}
	return b.Backend.List(ctx, loc)
}

// runBlocked starts cmd in the background once the gated listing is reached
// and returns a channel closed when cmd has finished.
func runBlocked(t *testing.T, cmd tea.Cmd, g gatedList) chan struct{} {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a navigation command")
	}
	done := make(chan struct{})
	go func() {
		runCmd(cmd)
		close(done)
	}()
	<-g.entered
	return done
}

func TestSlowFailedIntoKeepsLaterNavigation(t *testing.T) {
	f := newFixture(t)
	f.left.Seed("docs/sub/d.txt", []byte("D"))
	g := newGatedList(objstore.New(f.left), "docs/sub/")
	lp := pane.New("left", g, "docs/")
	if err := lp.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.model.panes[sideLeft] = lp

	f.press(t, keyUp, keyUp) // c.txt, then wraps to sub/
	done := runBlocked(t, f.press(t, keySpace), g)
	if lp.Location() != "docs/sub/" {
		t.Fatalf("location = %q, want docs/sub/ while listing", lp.Location())
	}

	runCmd(f.press(t, keyBackspace))
	if lp.Location() != "docs/" {
		t.Fatalf("location after backspace = %q, want docs/", lp.Location())
	}
	close(g.release)
	<-done

	if lp.Location() != "docs/" {
		t.Errorf("location = %q, want docs/ kept after the late failure", lp.Location())
	}
	if f.stack.Len() != 1 {
		t.Errorf("stack has %d records, want 1", f.stack.Len())
	}
}

func TestSlowFailedOutKeepsLaterNavigation(t *testing.T) {
	f := newFixture(t)
	f.left.Seed("docs/sub/d.txt", []byte("D"))
	g := newGatedList(objstore.New(f.left), "docs/")
	lp := pane.New("left", g, "docs/sub/")
	if err := lp.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.model.panes[sideLeft] = lp

	done := runBlocked(t, f.press(t, keyBackspace), g)
	runCmd(f.press(t, keyBackspace))
	if lp.Location() != "" {
		t.Fatalf("location after second backspace = %q, want root", lp.Location())
	}
	close(g.release)
	<-done

	if lp.Location() != "" {
		t.Errorf("location = %q, want root kept after the late failure", lp.Location())
	}
}

func TestRefreshKeyPicksUpNewObjects(t *testing.T) {
	f := newFixture(t)
	f.right.Seed("new.txt", []byte("n"))
	runCmd(f.press(t, runes("r")))
	if got := f.model.panes[sideRight].View().Entries; len(got) != 1 || got[0].Name != "new.txt" {
		t.Errorf("right entries = %+v", got)
	}
}

// ---------------------------------------------------------------------------
// View
// ---------------------------------------------------------------------------

func TestViewShowsTitlesAndTags(t *testing.T) {
	f := newFixture(t)
	f.press(t, keyDown, runes("d"), keyDown)
	view := f.model.View()
	for _, want := range []string{"src@mem:", "dst@mem:", "a.txt [D]", "> b.txt"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestViewBeforeResize(t *testing.T) {
	f := newFixture(t)
	f.model.width = 0
	if got := f.model.View(); got != "Loading..." {
		t.Errorf("View = %q", got)
	}
}

func TestHelpToggle(t *testing.T) {
	f := newFixture(t)
	f.press(t, runes("?"))
	if !f.model.showHelp {
		t.Fatal("? should open help")
	}
	if !strings.Contains(f.model.View(), "mark delete") {
		t.Error("help view missing bindings")
	}
	f.press(t, runes("?"))
	if f.model.showHelp {
		t.Error("? should close help")
	}
}

func TestWindowSizeMsg(t *testing.T) {
	f := newFixture(t)
	next, _ := f.model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m := next.(DualPaneModel)
	if m.width != 120 || m.height != 40 {
		t.Errorf("size = %dx%d", m.width, m.height)
	}
}

func TestTickReschedules(t *testing.T) {
	f := newFixture(t)
	_, cmd := f.model.Update(tickMsg{})
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
}

func TestQuitKeys(t *testing.T) {
	for _, msg := range []tea.KeyMsg{keyEsc, {Type: tea.KeyCtrlC}} {
		f := newFixture(t)
		cmd := f.press(t, msg)
		if cmd == nil {
			t.Fatalf("%s should quit", msg)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s did not return tea.Quit", msg)
		}
	}
}

func TestQuitWorksOnErrorScreen(t *testing.T) {
	f := newFixture(t)
	f.stack.Push("S3", fault.New("S3", fault.NotFound, "gone"))
	cmd := f.press(t, keyEsc)
	if cmd == nil {
		t.Fatal("esc should quit even with errors pending")
	}
}
