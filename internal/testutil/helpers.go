package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

// ParseUUID parses a UUID string and fails the test if invalid.
// Handler tests use it on ids read back from JSON bodies.
func ParseUUID(t *testing.T, uuidStr string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(uuidStr)
	if err != nil {
		t.Fatalf("Invalid UUID string: %s, error: %v", uuidStr, err)
	}
	return id
}

// Context returns a context that is cancelled when the test ends or after
// ten seconds, whichever comes first.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
