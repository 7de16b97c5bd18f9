package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/transitops/user-service/internal/ports/out/idempotency"
)

func TestStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{
		Key:      "k1",
		Method:   "POST",
		Route:    "/api/user/register",
		BodyHash: "abc123",
	}
	body := []byte(`{"Id":"u1"}`)
	rec := idempotency.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        body,
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := s.Put(context.Background(), fp, rec); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	body[0] = 'X'

	got, ok, err := s.Get(context.Background(), fp)
	if err != nil || !ok {
		t.Fatalf("Get() ok=%v err=%v", ok, err)
	}
	if string(got.Body) != `{"Id":"u1"}` {
		t.Fatalf("stored body aliased caller slice: %q", got.Body)
	}
	got.Body[0] = 'Y'

	again, _, _ := s.Get(context.Background(), fp)
	if string(again.Body) != `{"Id":"u1"}` {
		t.Fatalf("Get() returned aliased body: %q", again.Body)
	}
}
