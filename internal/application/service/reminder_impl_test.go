package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shareminder/internal/application/dto"
	"shareminder/internal/domain/constant"
	"shareminder/internal/domain/entity"
	appErrors "shareminder/internal/pkg/errors"
	"shareminder/internal/pkg/logger"
)

// --- fakes ---

// fakeStore keeps the snapshot in memory and hands out deep copies on Load,
// like the real blob store decoding fresh JSON on every read.
type fakeStore struct {
	mu        sync.Mutex
	snap      *entity.Snapshot
	saveCalls int
	failSaves int // fail the next N Save calls
}

func newFakeStore() *fakeStore {
	return &fakeStore{snap: entity.NewSnapshot()}
}

func (f *fakeStore) Load(ctx context.Context) (*entity.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return deepCopy(f.snap), nil
}

func (f *fakeStore) Save(ctx context.Context, snap *entity.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.failSaves > 0 {
		f.failSaves--
		return errors.New("disk full")
	}
	f.snap = deepCopy(snap)
	return nil
}

func (f *fakeStore) current() *entity.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return deepCopy(f.snap)
}

func deepCopy(snap *entity.Snapshot) *entity.Snapshot {
	body, err := json.Marshal(snap)
	if err != nil {
		panic(err)
	}
	out := entity.NewSnapshot()
	if err := json.Unmarshal(body, out); err != nil {
		panic(err)
	}
	if out.Bindings == nil {
		out.Bindings = make(map[string]string)
	}
	return out
}

type fakeScheduler struct {
	mu          sync.Mutex
	nextHandle  int
	scheduled   map[string]time.Time // handle -> firesAt
	canceled    []string
	scheduleErr error
	fire        func(string)
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: make(map[string]time.Time)}
}

func (f *fakeScheduler) Schedule(ctx context.Context, reminderID string, firesAt time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheduleErr != nil {
		return "", f.scheduleErr
	}
	f.nextHandle++
	handle := fmt.Sprintf("h%d", f.nextHandle)
	f.scheduled[handle] = firesAt
	return handle, nil
}

func (f *fakeScheduler) Cancel(ctx context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.canceled = append(f.canceled, handle)
	delete(f.scheduled, handle)
	return nil
}

func (f *fakeScheduler) SetFireHandler(fire func(string)) { f.fire = fire }
func (f *fakeScheduler) Stop()                            {}

type fakeShareClient struct {
	mu    sync.Mutex
	calls []string // titles, in call order
	err   error
}

func (f *fakeShareClient) Share(ctx context.Context, photoReference *string, title, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, title)
	return f.err
}

func (f *fakeShareClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// --- helpers ---

type engineDeps struct {
	store   *fakeStore
	sched   *fakeScheduler
	line    *fakeShareClient
	discord *fakeShareClient
	svc     ReminderService
}

func newEngine(t *testing.T) *engineDeps {
	t.Helper()
	d := &engineDeps{
		store:   newFakeStore(),
		sched:   newFakeScheduler(),
		line:    &fakeShareClient{},
		discord: &fakeShareClient{},
	}
	d.svc = NewReminderService(d.store, d.sched, ShareRegistry{
		constant.PlatformLine:    d.line,
		constant.PlatformDiscord: d.discord,
	}, logger.New())
	return d
}

func createRequest(title string, at time.Time) dto.CreateReminderRequest {
	return dto.CreateReminderRequest{
		Title:       title,
		Description: "some description",
		ScheduledAt: at,
		Targets:     entity.Targets{Line: true},
	}
}

// --- tests ---

func TestCreate(t *testing.T) {
	d := newEngine(t)
	at := time.Now().Add(time.Hour)

	created, err := d.svc.Create(context.Background(), createRequest("Launch post", at))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.Completed)
	assert.Equal(t, "Launch post", created.Title)

	snap := d.store.current()
	require.Len(t, snap.Reminders, 1)
	assert.Equal(t, created.ID, snap.Reminders[0].ID)
	assert.False(t, snap.Reminders[0].Completed)

	handle, ok := snap.Bindings[created.ID]
	require.True(t, ok, "a binding entry keyed by the new ID must exist")
	_, live := d.sched.scheduled[handle]
	assert.True(t, live, "the binding handle must point at a scheduled alert")
}

func TestCreateUniqueIDs(t *testing.T) {
	d := newEngine(t)
	at := time.Now().Add(time.Hour)

	a, err := d.svc.Create(context.Background(), createRequest("first", at))
	require.NoError(t, err)
	b, err := d.svc.Create(context.Background(), createRequest("second", at))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateEmptyTitle(t *testing.T) {
	d := newEngine(t)

	_, err := d.svc.Create(context.Background(), createRequest("", time.Now().Add(time.Hour)))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, d.sched.scheduled, "nothing may be scheduled for invalid input")
	assert.Empty(t, d.store.current().Reminders)
}

func TestCreateZeroTargetsAccepted(t *testing.T) {
	d := newEngine(t)
	req := createRequest("no targets", time.Now().Add(time.Hour))
	req.Targets = entity.Targets{}

	created, err := d.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, created.Targets.None())
}

func TestCreateCompensatesOnSaveFailure(t *testing.T) {
	d := newEngine(t)
	d.store.failSaves = 1

	_, err := d.svc.Create(context.Background(), createRequest("doomed", time.Now().Add(time.Hour)))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrStore)

	assert.Empty(t, d.store.current().Reminders, "nothing may be persisted")
	require.Len(t, d.sched.canceled, 1, "the orphaned binding must be canceled")
	assert.Empty(t, d.sched.scheduled, "no scheduled alert may leak")
}

func TestCreateSchedulerFailure(t *testing.T) {
	d := newEngine(t)
	d.sched.scheduleErr = errors.New("scheduler down")

	_, err := d.svc.Create(context.Background(), createRequest("unlucky", time.Now().Add(time.Hour)))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrScheduler)
	assert.Empty(t, d.store.current().Reminders)
}

func TestListOrderedByScheduledAtDescending(t *testing.T) {
	d := newEngine(t)
	base := time.Now()

	for _, offset := range []time.Duration{time.Hour, 3 * time.Hour, 2 * time.Hour} {
		_, err := d.svc.Create(context.Background(), createRequest(offset.String(), base.Add(offset)))
		require.NoError(t, err)
	}

	list, err := d.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "3h0m0s", list[0].Title)
	assert.Equal(t, "2h0m0s", list[1].Title)
	assert.Equal(t, "1h0m0s", list[2].Title)
}

func TestUpdateReschedules(t *testing.T) {
	d := newEngine(t)
	t1 := time.Now().Add(time.Hour)
	t2 := t1.Add(time.Hour)

	created, err := d.svc.Create(context.Background(), createRequest("movable", t1))
	require.NoError(t, err)
	oldHandle := d.store.current().Bindings[created.ID]

	updated, err := d.svc.Update(context.Background(), created.ID, dto.UpdateReminderRequest{ScheduledAt: &t2})
	require.NoError(t, err)
	assert.True(t, updated.ScheduledAt.Equal(t2))

	snap := d.store.current()
	newHandle := snap.Bindings[created.ID]
	assert.NotEqual(t, oldHandle, newHandle, "the old handle is never reused")
	assert.Contains(t, d.sched.canceled, oldHandle)
	_, live := d.sched.scheduled[newHandle]
	assert.True(t, live)
}

func TestUpdateWithoutTimeChangeSkipsScheduler(t *testing.T) {
	d := newEngine(t)
	created, err := d.svc.Create(context.Background(), createRequest("static", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	oldHandle := d.store.current().Bindings[created.ID]

	newTitle := "renamed"
	updated, err := d.svc.Update(context.Background(), created.ID, dto.UpdateReminderRequest{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)

	assert.Empty(t, d.sched.canceled, "no scheduler interaction when the time is unchanged")
	assert.Equal(t, oldHandle, d.store.current().Bindings[created.ID])
}

func TestUpdateNotFound(t *testing.T) {
	d := newEngine(t)
	newTitle := "ghost"
	_, err := d.svc.Update(context.Background(), "missing", dto.UpdateReminderRequest{Title: &newTitle})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDeleteCleansUp(t *testing.T) {
	d := newEngine(t)
	created, err := d.svc.Create(context.Background(), createRequest("short-lived", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	handle := d.store.current().Bindings[created.ID]

	require.NoError(t, d.svc.Delete(context.Background(), created.ID))

	snap := d.store.current()
	assert.Empty(t, snap.Reminders)
	assert.NotContains(t, snap.Bindings, created.ID)
	assert.Contains(t, d.sched.canceled, handle)

	newTitle := "too late"
	_, err = d.svc.Update(context.Background(), created.ID, dto.UpdateReminderRequest{Title: &newTitle})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDeleteNotFound(t *testing.T) {
	d := newEngine(t)
	err := d.svc.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestShareNowAttemptsEveryTarget(t *testing.T) {
	d := newEngine(t)
	d.line.err = errors.New("line unavailable")

	reminder := &entity.Reminder{
		ID:      "r1",
		Title:   "both ways",
		Targets: entity.Targets{Line: true, Discord: true},
	}
	outcomes := d.svc.ShareNow(context.Background(), reminder)

	assert.Equal(t, dto.ShareOutcome{
		constant.PlatformLine:    false,
		constant.PlatformDiscord: true,
	}, outcomes)
	assert.Equal(t, 1, d.line.callCount())
	assert.Equal(t, 1, d.discord.callCount())
	assert.False(t, reminder.Completed, "ShareNow must not mark completion")
}

func TestDueSweepIdempotent(t *testing.T) {
	d := newEngine(t)
	now := time.Now()
	created, err := d.svc.Create(context.Background(), createRequest("due", now.Add(-time.Minute)))
	require.NoError(t, err)

	report, err := d.svc.DueSweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 1, d.line.callCount())

	snap := d.store.current()
	assert.True(t, snap.Reminders[0].Completed)
	assert.NotContains(t, snap.Bindings, created.ID)

	// Second pass with the same clock is a no-op.
	report, err = d.svc.DueSweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 1, d.line.callCount(), "a completed reminder is never re-shared")
}

func TestDueSweepSkipsFutureReminders(t *testing.T) {
	d := newEngine(t)
	now := time.Now()
	_, err := d.svc.Create(context.Background(), createRequest("later", now.Add(time.Hour)))
	require.NoError(t, err)

	report, err := d.svc.DueSweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 0, d.line.callCount())
}

func TestDueSweepPartialShareStillCompletes(t *testing.T) {
	d := newEngine(t)
	now := time.Now()
	d.discord.err = errors.New("webhook 500")

	req := createRequest("half works", now.Add(-time.Minute))
	req.Targets = entity.Targets{Line: true, Discord: true}
	_, err := d.svc.Create(context.Background(), req)
	require.NoError(t, err)

	report, err := d.svc.DueSweep(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, dto.ShareOutcome{
		constant.PlatformLine:    true,
		constant.PlatformDiscord: false,
	}, report.Results[0].Outcomes)

	assert.True(t, d.store.current().Reminders[0].Completed,
		"a partially failed share still marks completion")
}

func TestDueSweepIsolatesPersistFailures(t *testing.T) {
	d := newEngine(t)
	now := time.Now()

	first, err := d.svc.Create(context.Background(), createRequest("first", now.Add(-2*time.Minute)))
	require.NoError(t, err)
	_, err = d.svc.Create(context.Background(), createRequest("second", now.Add(-time.Minute)))
	require.NoError(t, err)

	// Fail only the first completion's save.
	d.store.failSaves = 1

	report, err := d.svc.DueSweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, []string{first.ID}, report.Failed)
	assert.Equal(t, 2, d.line.callCount(), "the second reminder is still attempted")

	// The second save carried the first reminder's completion along.
	for _, r := range d.store.current().Reminders {
		assert.True(t, r.Completed)
	}
}

// Scenario from the product brief: a reminder created ten minutes before
// launch, due five minutes before, swept at launch time.
func TestLifecycleScenario(t *testing.T) {
	d := newEngine(t)
	t0 := time.Now()

	req := dto.CreateReminderRequest{
		Title:       "Launch post",
		ScheduledAt: t0.Add(-5 * time.Minute),
		Targets:     entity.Targets{Line: true},
	}
	created, err := d.svc.Create(context.Background(), req)
	require.NoError(t, err)

	list, err := d.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Completed)

	_, err = d.svc.DueSweep(context.Background(), t0)
	require.NoError(t, err)
	assert.Equal(t, 1, d.line.callCount())

	snap := d.store.current()
	assert.True(t, snap.Reminders[0].Completed)
	assert.NotContains(t, snap.Bindings, created.ID)

	_, err = d.svc.DueSweep(context.Background(), t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, d.line.callCount(), "no further share calls after completion")
}

func TestReconcileRebuildsBindings(t *testing.T) {
	d := newEngine(t)
	now := time.Now()

	// Persisted state from a previous process: stale handles all around.
	d.store.snap = &entity.Snapshot{
		Reminders: []*entity.Reminder{
			{ID: "future", Title: "a", ScheduledAt: now.Add(time.Hour)},
			{ID: "overdue", Title: "b", ScheduledAt: now.Add(-time.Hour)},
			{ID: "done", Title: "c", ScheduledAt: now.Add(-2 * time.Hour), Completed: true},
		},
		Bindings: map[string]string{
			"future":  "stale1",
			"overdue": "stale2",
			"done":    "stale3",
			"deleted": "stale4",
		},
	}

	require.NoError(t, d.svc.Reconcile(context.Background()))

	snap := d.store.current()
	require.Len(t, snap.Bindings, 1, "only the future reminder keeps a binding")
	handle := snap.Bindings["future"]
	assert.NotContains(t, []string{"stale1", "stale2", "stale3", "stale4"}, handle)
	_, live := d.sched.scheduled[handle]
	assert.True(t, live)
}

func TestAlertFireTriggersSweep(t *testing.T) {
	d := newEngine(t)
	now := time.Now()
	created, err := d.svc.Create(context.Background(), createRequest("fired", now.Add(-time.Second)))
	require.NoError(t, err)

	require.NotNil(t, d.sched.fire, "the engine must register itself as fire handler")
	d.sched.fire(created.ID)

	assert.True(t, d.store.current().Reminders[0].Completed)
	assert.Equal(t, 1, d.line.callCount())

	// A stray alert for an already-completed reminder is a no-op.
	d.sched.fire(created.ID)
	assert.Equal(t, 1, d.line.callCount())
}
