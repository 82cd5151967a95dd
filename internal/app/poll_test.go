package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollUntil_Done(t *testing.T) {
	calls := 0
	err := pollUntil(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("pollUntil: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestPollUntil_CheckError(t *testing.T) {
	boom := errors.New("boom")
	err := pollUntil(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestPollUntil_Timeout(t *testing.T) {
	err := pollUntil(context.Background(), time.Millisecond, 10*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrPollTimeout) {
		t.Errorf("err = %v, want ErrPollTimeout", err)
	}
}

func TestPollUntil_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pollUntil(ctx, time.Hour, 0, func(context.Context) (bool, error) {
		t.Error("check called after cancel")
		return true, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
