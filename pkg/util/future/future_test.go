package future_test

import (
	"testing"
	"time"

	"github.com/stevearc/worklock/pkg/util/future"
)

func TestGetBlocksUntilSet(t *testing.T) {
	f := future.New[int]()
	if f.IsSet() {
		t.Fatal("new future should not be set")
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		f.Set(42)
	}()
	if got := f.Get(); got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
	if !f.IsSet() {
		t.Fatal("future should report set")
	}
}

func TestNewFromValue(t *testing.T) {
	f := future.NewFromValue("ready")
	if got := f.Get(); got != "ready" {
		t.Fatalf("got %q, want ready", got)
	}
}

func TestDoubleSetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("second Set should panic")
		}
	}()
	f := future.New[int]()
	f.Set(1)
	f.Set(2)
}
