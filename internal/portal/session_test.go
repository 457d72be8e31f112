package portal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinkedContextFollowsCaller(t *testing.T) {
	browser := context.Background()
	caller, cancelCaller := context.WithCancel(context.Background())
	defer cancelCaller()

	linked, cleanup := linkedContext(browser, caller)
	defer cleanup()

	select {
	case <-linked.Done():
		t.Fatal("linked context ended before the caller's")
	default:
	}

	cancelCaller()
	select {
	case <-linked.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("linked context did not follow the caller's cancellation")
	}
}

func TestLinkedContextFollowsCallerDeadline(t *testing.T) {
	caller, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	linked, cleanup := linkedContext(context.Background(), caller)
	defer cleanup()

	select {
	case <-linked.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("linked context did not follow the caller's deadline")
	}
}

func TestLinkedContextCleanup(t *testing.T) {
	linked, cleanup := linkedContext(context.Background(), context.Background())
	cleanup()
	assert.ErrorIs(t, linked.Err(), context.Canceled)
}
