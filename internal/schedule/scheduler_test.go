package schedule_test

import (
	"context"
	"testing"
	"time"

	"upkeep/internal/logging"
	"upkeep/internal/schedule"
	"upkeep/internal/testsupport"
)

type recordingStarter struct {
	batches [][]string
	epoch   uint64
}

func (r *recordingStarter) StartRun(operations []string) (uint64, error) {
	r.epoch++
	r.batches = append(r.batches, append([]string(nil), operations...))
	return r.epoch, nil
}

func newScheduler(t *testing.T) (*schedule.Scheduler, *schedule.Store, *recordingStarter) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := schedule.Open(cfg)
	if err != nil {
		t.Fatalf("schedule.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	starter := &recordingStarter{}
	return schedule.NewScheduler(cfg, store, starter, logging.NewNop()), store, starter
}

func TestOnTickFiresDueSchedules(t *testing.T) {
	sched, store, starter := newScheduler(t)

	created, err := store.Create(context.Background(), schedule.Definition{
		Name:       "Nightly",
		Operations: []string{"brew-update", "trim-caches"},
		Frequency:  schedule.Daily,
		TimeOfDay:  "03:00",
		Enabled:    true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// advance past the computed fire time
	now := created.NextFire.Add(time.Minute)
	if err := sched.OnTick(context.Background(), now); err != nil {
		t.Fatalf("OnTick: %v", err)
	}

	if len(starter.batches) != 1 || starter.batches[0][0] != "brew-update" {
		t.Fatalf("expected one fired batch, got %v", starter.batches)
	}

	got, err := store.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LastFired.IsZero() {
		t.Fatal("expected last fired to be recorded")
	}
	if !got.NextFire.After(now) {
		t.Fatalf("expected next fire recomputed past %v, got %v", now, got.NextFire)
	}
}

func TestOnTickCoalescesSchedulesDueTogether(t *testing.T) {
	sched, store, starter := newScheduler(t)

	first, err := store.Create(context.Background(), schedule.Definition{
		Name:       "Nightly",
		Operations: []string{"brew-update", "trim-caches"},
		Frequency:  schedule.Daily,
		TimeOfDay:  "03:00",
		Enabled:    true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := store.Create(context.Background(), schedule.Definition{
		Name:       "Housekeeping",
		Operations: []string{"trim-caches", "dns-flush"},
		Frequency:  schedule.Daily,
		TimeOfDay:  "03:00",
		Enabled:    true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := first.NextFire.Add(time.Minute)
	if second.NextFire.After(now) {
		now = second.NextFire.Add(time.Minute)
	}
	if err := sched.OnTick(context.Background(), now); err != nil {
		t.Fatalf("OnTick: %v", err)
	}

	// One run for both schedules, so the second cannot supersede the first.
	if len(starter.batches) != 1 {
		t.Fatalf("expected a single coalesced run, got %v", starter.batches)
	}
	// schedules list alphabetically, so Housekeeping's operations lead
	want := []string{"trim-caches", "dns-flush", "brew-update"}
	got := starter.batches[0]
	if len(got) != len(want) {
		t.Fatalf("coalesced batch %v, want %v", got, want)
	}
	for i, op := range want {
		if got[i] != op {
			t.Fatalf("coalesced batch %v, want %v", got, want)
		}
	}

	for _, id := range []string{first.ID, second.ID} {
		def, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if def.LastFired.IsZero() {
			t.Fatalf("schedule %s must record the coalesced fire", def.Name)
		}
		if !def.NextFire.After(now) {
			t.Fatalf("schedule %s next fire must advance past %v, got %v", def.Name, now, def.NextFire)
		}
	}
}

func TestOnTickSkipsNotDueSchedules(t *testing.T) {
	sched, store, starter := newScheduler(t)

	if _, err := store.Create(context.Background(), schedule.Definition{
		Name:       "Future",
		Operations: []string{"dns-flush"},
		Frequency:  schedule.Daily,
		TimeOfDay:  "03:00",
		Enabled:    true,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := sched.OnTick(context.Background(), time.Now()); err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	if len(starter.batches) != 0 {
		t.Fatalf("nothing should fire before next fire time, got %v", starter.batches)
	}
}

func TestOnTickAdvancesDisabledScheduleWithoutFiring(t *testing.T) {
	sched, store, starter := newScheduler(t)

	created, err := store.Create(context.Background(), schedule.Definition{
		Name:       "Paused",
		Operations: []string{"dns-flush"},
		Frequency:  schedule.Daily,
		TimeOfDay:  "03:00",
		Enabled:    false,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := created.NextFire.Add(time.Minute)
	if err := sched.OnTick(context.Background(), now); err != nil {
		t.Fatalf("OnTick: %v", err)
	}
	if len(starter.batches) != 0 {
		t.Fatalf("disabled schedule must not fire, got %v", starter.batches)
	}

	got, err := store.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.NextFire.After(now) {
		t.Fatalf("disabled schedule next fire must still advance, got %v", got.NextFire)
	}
	if !got.LastFired.IsZero() {
		t.Fatal("disabled schedule must not record a fire")
	}
}

func TestRunNowFiresWithoutTouchingRecurrence(t *testing.T) {
	sched, store, starter := newScheduler(t)

	created, err := store.Create(context.Background(), schedule.Definition{
		Name:       "Manual",
		Operations: []string{"space-report"},
		Frequency:  schedule.Monthly,
		TimeOfDay:  "12:00",
		DayOfMonth: 1,
		Enabled:    true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	epoch, err := sched.RunNow(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if epoch == 0 || len(starter.batches) != 1 {
		t.Fatalf("expected immediate run, epoch=%d batches=%v", epoch, starter.batches)
	}

	got, err := store.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.NextFire.Equal(created.NextFire) {
		t.Fatalf("RunNow must not shift next fire: %v vs %v", got.NextFire, created.NextFire)
	}
}
