package runtime

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReceiptResolvesOnce(t *testing.T) {
	r := newReceipt()
	first := errors.New("first")

	r.resolve(first)
	r.resolve(errors.New("second"))

	select {
	case <-r.Done():
	default:
		t.Fatal("Done should be closed after resolve")
	}
	if !errors.Is(r.Err(), first) {
		t.Fatalf("expected first error to win, got %v", r.Err())
	}
}

func TestReceiptErrBeforeResolve(t *testing.T) {
	r := newReceipt()
	if r.Err() != nil {
		t.Fatal("Err should be nil before resolution")
	}
	select {
	case <-r.Done():
		t.Fatal("Done should not be closed yet")
	default:
	}
}

func TestResolvedHelper(t *testing.T) {
	boom := errors.New("boom")
	r := resolved(boom)

	select {
	case <-r.Done():
	default:
		t.Fatal("resolved receipt should be done immediately")
	}
	if !errors.Is(r.Err(), boom) {
		t.Fatalf("unexpected error: %v", r.Err())
	}
}

func TestReceiptWait(t *testing.T) {
	r := newReceipt()
	go func() {
		time.Sleep(10 * time.Millisecond)
		r.resolve(nil)
	}()

	if err := r.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReceiptWaitHonorsContext(t *testing.T) {
	r := newReceipt()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := r.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
