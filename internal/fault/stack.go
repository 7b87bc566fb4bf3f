package fault

import (
	"sync"

	"dualfm/internal/logging"
)

// Stack is the ordered log of failures shown to the user. Any goroutine may
// push; only the UI clears it, after the user acknowledges.
type Stack struct {
	mu      sync.Mutex
	records []*Error
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push appends err. Errors that are not *Error are recorded as Unexpected in
// the given domain. A nil err is ignored.
func (s *Stack) Push(domain string, err error) {
	fe := Ensure(domain, err)
	if fe == nil {
		return
	}
	logging.L().Error().
		Str("domain", fe.Domain).
		Str("code", fe.Code).
		Str("kind", fe.Kind.String()).
		Msg(fe.Message)

	s.mu.Lock()
	s.records = append(s.records, fe)
	s.mu.Unlock()
}

// Records returns a copy of the stacked errors, oldest first.
func (s *Stack) Records() []*Error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Error, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of stacked errors.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Empty reports whether no error is waiting for acknowledgment.
func (s *Stack) Empty() bool {
	return s.Len() == 0
}

// Clear drops every stacked error.
func (s *Stack) Clear() {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
}
