package batch

import (
	"errors"
	"testing"
)

func TestNewOK(t *testing.T) {
	r := NewOK("chunk-1")
	if r.ID() != "chunk-1" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Status() != StatusOK {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusOK)
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v, want nil", r.Err())
	}
}

func TestNewError(t *testing.T) {
	err := errors.New("embedding failed")
	r := NewError("chunk-2", err)
	if r.Status() != StatusError {
		t.Errorf("Status() = %q, want %q", r.Status(), StatusError)
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Result{NewOK("a"), NewError("b", errors.New("x")), NewOK("c")})
	if s.OK != 2 || s.Failed != 1 || s.Total() != 3 {
		t.Errorf("Summarize = %+v", s)
	}
	if got := Summarize(nil); got.Total() != 0 {
		t.Errorf("empty Summarize = %+v", got)
	}
}
