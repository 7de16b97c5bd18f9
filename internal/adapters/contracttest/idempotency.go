package contracttest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	idempotencyport "github.com/transitops/user-service/internal/ports/out/idempotency"
)

type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

// RunIdempotencyStore exercises the idempotency.Store contract.
func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Method:   "POST",
		Route:    "/api/user/register",
		BodyHash: "hash-1",
	}

	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v, want miss", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"Id":"u1"}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != `{"Id":"u1"}` || got.ContentType != "application/json" || got.StatusCode != 201 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("createdAt=%v, want %v", got.CreatedAt, rec.CreatedAt)
	}

	// A different body under the same key is a different request.
	other := fp
	other.BodyHash = "hash-2"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("Get with other body hash: ok=%v err=%v, want miss", ok, err)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"Id":"u2"}`)
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != `{"Id":"u2"}` {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}
}
