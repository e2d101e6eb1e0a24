package eventrole

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"rolecall/internal/discord"
	"rolecall/internal/storage"
	logx "rolecall/pkg/logx"
)

type fakeStore struct {
	recs     map[string]*storage.EventRecord
	findErr  error
	zeroRows bool
	creates  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{recs: map[string]*storage.EventRecord{}}
}

func (f *fakeStore) FindScheduledEvent(_ context.Context, eventID string) (*storage.EventRecord, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	rec, ok := f.recs[eventID]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func (f *fakeStore) CreateScheduledEvent(_ context.Context, eventID, roleID string) (int64, error) {
	f.creates++
	if f.zeroRows {
		return 0, nil
	}
	if _, ok := f.recs[eventID]; ok {
		return 0, nil
	}
	f.recs[eventID] = &storage.EventRecord{EventID: eventID, RoleID: roleID, CreatedAt: time.Now()}
	return 1, nil
}

type fakeSource struct {
	roles     map[string]*discord.Role
	createErr error
	nilRole   bool
	created   int
	lastName  string
}

func newFakeSource() *fakeSource {
	return &fakeSource{roles: map[string]*discord.Role{}}
}

func (f *fakeSource) CreateRole(_ context.Context, _, name, _ string) (*discord.Role, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.nilRole {
		return nil, nil
	}
	f.created++
	f.lastName = name
	r := &discord.Role{ID: "role-" + strconv.Itoa(f.created), Name: name, Mentionable: true}
	f.roles[r.ID] = r
	return r, nil
}

func (f *fakeSource) Role(_ context.Context, _, roleID string) (*discord.Role, error) {
	return f.roles[roleID], nil
}

type fakeQueue struct{ kicks int }

func (f *fakeQueue) Kick() { f.kicks++ }

func event(id, name string) *discord.ScheduledEvent {
	return &discord.ScheduledEvent{
		ID:        id,
		GuildID:   "guild-1",
		Name:      name,
		StartTime: time.Date(2026, time.March, 3, 18, 0, 0, 0, time.UTC),
	}
}

func TestResolveCreatesRoleOnce(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	src := newFakeSource()
	queue := &fakeQueue{}
	svc := New(store, src, queue, logx.Nop())

	first, err := svc.Resolve(context.Background(), event("ev-1", "Board Game Night"))
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if first.RoleID == "" {
		t.Fatal("first Resolve left RoleID empty")
	}
	if src.lastName != "Board Game Night [Mar-03 18:00]" {
		t.Fatalf("role name = %q", src.lastName)
	}

	second, err := svc.Resolve(context.Background(), event("ev-1", "Board Game Night"))
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if second.RoleID != first.RoleID {
		t.Fatalf("second Resolve returned role %s, want %s", second.RoleID, first.RoleID)
	}
	if src.created != 1 {
		t.Fatalf("role created %d times, want 1", src.created)
	}
	if store.creates != 1 {
		t.Fatalf("record written %d times, want 1", store.creates)
	}
}

func TestResolveMissingGuild(t *testing.T) {
	t.Parallel()
	src := newFakeSource()
	svc := New(newFakeStore(), src, &fakeQueue{}, logx.Nop())

	ev := event("ev-1", "Board Game Night")
	ev.GuildID = ""
	_, err := svc.Resolve(context.Background(), ev)
	if !errors.Is(err, ErrMissingGuild) {
		t.Fatalf("err = %v, want ErrMissingGuild", err)
	}
	if src.created != 0 {
		t.Fatal("no role may be created for a guildless event")
	}
}

func TestResolveRoleCreationFailure(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		mut  func(*fakeSource)
	}{
		{name: "api error", mut: func(f *fakeSource) { f.createErr = errors.New("boom") }},
		{name: "nil role", mut: func(f *fakeSource) { f.nilRole = true }},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			src := newFakeSource()
			tt.mut(src)
			svc := New(store, src, &fakeQueue{}, logx.Nop())

			_, err := svc.Resolve(context.Background(), event("ev-1", "Game Night"))
			if !errors.Is(err, ErrRoleCreation) {
				t.Fatalf("err = %v, want ErrRoleCreation", err)
			}
			if store.creates != 0 {
				t.Fatal("no record may be written when role creation fails")
			}
		})
	}
}

func TestResolvePersistenceFailureSkipsKick(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.zeroRows = true
	queue := &fakeQueue{}
	svc := New(store, newFakeSource(), queue, logx.Nop())

	_, err := svc.Resolve(context.Background(), event("ev-1", "Game Night"))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if queue.kicks != 0 {
		t.Fatalf("queue kicked %d times after a failed write, want 0", queue.kicks)
	}
}

func TestResolveKicksQueueOnSuccess(t *testing.T) {
	t.Parallel()
	queue := &fakeQueue{}
	svc := New(newFakeStore(), newFakeSource(), queue, logx.Nop())

	if _, err := svc.Resolve(context.Background(), event("ev-1", "Game Night")); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if queue.kicks != 1 {
		t.Fatalf("kicks = %d, want 1", queue.kicks)
	}
}

func TestResolveBatchIsolatesFailures(t *testing.T) {
	t.Parallel()
	svc := New(newFakeStore(), newFakeSource(), &fakeQueue{}, logx.Nop())

	bad := event("ev-2", "No Guild")
	bad.GuildID = ""
	in := []*discord.ScheduledEvent{
		event("ev-1", "First"),
		bad,
		event("ev-3", "Third"),
	}

	out := svc.ResolveBatch(context.Background(), in)
	if len(out) != len(in) {
		t.Fatalf("output length = %d, want %d", len(out), len(in))
	}
	if out[0] == nil || out[0].ID != "ev-1" {
		t.Fatalf("slot 0 = %+v, want ev-1", out[0])
	}
	if out[1] != nil {
		t.Fatalf("slot 1 = %+v, want nil for the failed event", out[1])
	}
	if out[2] == nil || out[2].ID != "ev-3" {
		t.Fatalf("slot 2 = %+v, want ev-3", out[2])
	}
}

func TestRoleIDReadsWithoutSideEffects(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.recs["ev-1"] = &storage.EventRecord{EventID: "ev-1", RoleID: "role-9"}
	src := newFakeSource()
	svc := New(store, src, &fakeQueue{}, logx.Nop())

	id, ok, err := svc.RoleID(context.Background(), "ev-1")
	if err != nil || !ok || id != "role-9" {
		t.Fatalf("RoleID = (%q, %v, %v), want (role-9, true, nil)", id, ok, err)
	}

	_, ok, err = svc.RoleID(context.Background(), "ev-404")
	if err != nil || ok {
		t.Fatalf("RoleID for unknown event = (ok=%v, err=%v), want (false, nil)", ok, err)
	}
	if src.created != 0 || store.creates != 0 {
		t.Fatal("RoleID must not write anything")
	}
}

func TestRoleDeletedOutOfBand(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	src := newFakeSource()
	queue := &fakeQueue{}
	svc := New(store, src, queue, logx.Nop())

	ev, err := svc.Resolve(context.Background(), event("ev-1", "Game Night"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// Operator deletes the role behind our back.
	delete(src.roles, ev.RoleID)

	_, err = svc.Role(context.Background(), ev)
	if !errors.Is(err, ErrLookup) {
		t.Fatalf("err = %v, want ErrLookup", err)
	}

	// A subsequent Resolve must not create a replacement: the record is
	// still the source of truth.
	again, err := svc.Resolve(context.Background(), event("ev-1", "Game Night"))
	if err != nil {
		t.Fatalf("Resolve after deletion: %v", err)
	}
	if again.RoleID != ev.RoleID {
		t.Fatalf("RoleID changed from %s to %s", ev.RoleID, again.RoleID)
	}
	if src.created != 1 {
		t.Fatalf("role created %d times, want 1", src.created)
	}
}

func TestRoleWithoutRecord(t *testing.T) {
	t.Parallel()
	svc := New(newFakeStore(), newFakeSource(), &fakeQueue{}, logx.Nop())

	role, err := svc.Role(context.Background(), event("ev-404", "Unknown"))
	if err != nil || role != nil {
		t.Fatalf("Role = (%+v, %v), want (nil, nil)", role, err)
	}
}
