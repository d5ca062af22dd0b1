package memory

import (
	"testing"

	"foundry-course-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	course := sampleCourse()
	key := app.SessionKey{CourseID: "course-1", UserID: "u1"}
	create := func() *app.Session {
		return app.NewSession(key, app.NewTracker(&course, "u1", nil))
	}

	session, created := store.GetOrCreate(key, create)
	if session == nil || !created {
		t.Fatalf("expected new session")
	}
	again, created := store.GetOrCreate(key, create)
	if again != session || created {
		t.Fatalf("expected existing session to be reused")
	}
	if _, ok := store.Get(key); !ok {
		t.Fatalf("expected session present")
	}
	if n := len(store.List()); n != 1 {
		t.Fatalf("expected 1 session, got %d", n)
	}

	store.Delete(key)
	if _, ok := store.Get(key); ok {
		t.Fatalf("expected session removed")
	}
}
