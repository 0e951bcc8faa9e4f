package utils

import (
	"testing"
	"time"

	"github.com/xprobe/mars/utils/errors"
)

func TestFutureResolve(t *testing.T) {
	fut := NewFuture[int](time.Second)
	go fut.Resolve(42)

	v, err := fut.Result()
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Fatalf("Result() = %d, want 42", v)
	}
}

func TestFutureReject(t *testing.T) {
	rejected := errors.New("nope")
	fut := NewFuture[int](time.Second)
	go fut.Reject(rejected)

	if _, err := fut.Result(); !errors.Is(err, rejected) {
		t.Fatalf("Result() err = %v, want the rejection", err)
	}
}

func TestFutureTimeout(t *testing.T) {
	fut := NewFuture[int](10 * time.Millisecond)
	if _, err := fut.Result(); !errors.Is(err, ErrFutureTimeout) {
		t.Fatalf("Result() err = %v, want ErrFutureTimeout", err)
	}
	// late resolution is ignored
	fut.Resolve(1)
}

func TestFutureCallback(t *testing.T) {
	done := make(chan int, 1)
	fut := NewFuture[int](time.Second, func(v int, err error) {
		done <- v
	})
	fut.Resolve(7)

	select {
	case v := <-done:
		if v != 7 {
			t.Fatalf("callback saw %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}
