package fault

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// ---------------------------------------------------------------------------
// Error
// ---------------------------------------------------------------------------

func TestErrorString(t *testing.T) {
	e := &Error{Domain: "S3", Code: "NoSuchKey", Message: "gone"}
	want := "S3 Err: NoSuchKey - gone"
	if e.Error() != want {
		t.Errorf("Error() = %q, want %q", e.Error(), want)
	}
}

func TestNewUsesKindAsCode(t *testing.T) {
	e := New("Local Filesystem", Unsupported, "Deletion of directories is unsupported!")
	if e.Code != "Unsupported" {
		t.Errorf("Code = %q, want Unsupported", e.Code)
	}
	if e.Kind != Unsupported {
		t.Errorf("Kind = %v, want Unsupported", e.Kind)
	}
}

func TestWrapDefaults(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap("S3", Service, "", cause)
	if e.Code != "Service" {
		t.Errorf("Code = %q, want Service", e.Code)
	}
	if e.Message != "boom" {
		t.Errorf("Message = %q, want boom", e.Message)
	}
	if !errors.Is(e, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
}

func TestWithFileDoesNotMutate(t *testing.T) {
	e := New("S3", NotFound, "missing")
	f := e.WithFile("/a/b.txt")
	if e.Message != "missing" {
		t.Errorf("original mutated: %q", e.Message)
	}
	if f.Message != "(File: /a/b.txt) missing" {
		t.Errorf("WithFile message = %q", f.Message)
	}
}

func TestKindOfThroughWrapping(t *testing.T) {
	e := New("S3", PermissionDenied, "nope")
	wrapped := fmt.Errorf("put: %w", e)
	if KindOf(wrapped) != PermissionDenied {
		t.Errorf("KindOf = %v, want PermissionDenied", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != Unexpected {
		t.Error("plain errors should be Unexpected")
	}
}

func TestEnsure(t *testing.T) {
	if Ensure("x", nil) != nil {
		t.Error("Ensure(nil) should be nil")
	}
	e := Ensure("SSH", errors.New("eof"))
	if e.Domain != "SSH" || e.Kind != Unexpected {
		t.Errorf("Ensure foreign = %+v", e)
	}
	orig := New("S3", NotFound, "x")
	if Ensure("SSH", orig) != orig {
		t.Error("Ensure should keep an existing *Error")
	}
}

// ---------------------------------------------------------------------------
// Stack
// ---------------------------------------------------------------------------

func TestStackPushAndClear(t *testing.T) {
	s := NewStack()
	if !s.Empty() {
		t.Fatal("new stack should be empty")
	}
	s.Push("S3", New("S3", NotFound, "a"))
	s.Push("Local Filesystem", errors.New("b"))
	s.Push("S3", nil)
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	recs := s.Records()
	if recs[0].Message != "a" || recs[1].Message != "b" {
		t.Errorf("records out of order: %v", recs)
	}
	if recs[1].Domain != "Local Filesystem" {
		t.Errorf("foreign error domain = %q", recs[1].Domain)
	}
	s.Clear()
	if !s.Empty() {
		t.Error("stack should be empty after Clear")
	}
}

func TestStackRecordsIsCopy(t *testing.T) {
	s := NewStack()
	s.Push("S3", New("S3", NotFound, "a"))
	recs := s.Records()
	recs[0] = nil
	if s.Records()[0] == nil {
		t.Error("Records should return a copy")
	}
}

func TestStackConcurrentPush(t *testing.T) {
	s := NewStack()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Push("S3", New("S3", Service, strings.Repeat("x", i)))
		}(i)
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Errorf("Len = %d, want 50", s.Len())
	}
}
