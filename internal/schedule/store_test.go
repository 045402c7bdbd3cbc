package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"upkeep/internal/schedule"
	"upkeep/internal/testsupport"
)

func openStore(t *testing.T) *schedule.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := schedule.Open(cfg)
	if err != nil {
		t.Fatalf("schedule.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAssignsIDAndNextFire(t *testing.T) {
	store := openStore(t)

	def, err := store.Create(context.Background(), schedule.Definition{
		Name:       "Nightly updates",
		Operations: []string{"brew-update", "brew-cleanup"},
		Frequency:  schedule.Daily,
		TimeOfDay:  "03:00",
		Enabled:    true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if def.ID == "" {
		t.Fatal("expected assigned id")
	}
	if def.NextFire.IsZero() || !def.NextFire.After(time.Now()) {
		t.Fatalf("expected future next fire, got %v", def.NextFire)
	}
}

func TestCreateValidatesDefinition(t *testing.T) {
	store := openStore(t)

	_, err := store.Create(context.Background(), schedule.Definition{
		Name:      "No ops",
		Frequency: schedule.Daily,
		TimeOfDay: "03:00",
	})
	if err == nil {
		t.Fatal("expected validation error for empty operations")
	}
}

func TestScheduleSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := schedule.Open(cfg)
	if err != nil {
		t.Fatalf("schedule.Open: %v", err)
	}

	created, err := store.Create(context.Background(), schedule.Definition{
		Name:       "Weekend checks",
		Operations: []string{"disk-verify", "smart-check"},
		Frequency:  schedule.Weekly,
		TimeOfDay:  "09:00",
		Weekdays:   []time.Weekday{time.Saturday},
		Enabled:    true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := schedule.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != created.Name || len(got.Operations) != 2 || got.Weekdays[0] != time.Saturday {
		t.Fatalf("schedule did not round-trip: %+v", got)
	}
	if !got.NextFire.Equal(created.NextFire) {
		t.Fatalf("next fire changed across reopen: %v vs %v", got.NextFire, created.NextFire)
	}
}

func TestUpdateRecomputesNextFire(t *testing.T) {
	store := openStore(t)

	created, err := store.Create(context.Background(), schedule.Definition{
		Name:       "Nightly",
		Operations: []string{"dns-flush"},
		Frequency:  schedule.Daily,
		TimeOfDay:  "03:00",
		Enabled:    true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	created.TimeOfDay = "05:45"
	updated, err := store.Update(context.Background(), created)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.NextFire.Hour() != 5 || updated.NextFire.Minute() != 45 {
		t.Fatalf("next fire not recomputed, got %v", updated.NextFire)
	}
}

func TestDeleteAndNotFound(t *testing.T) {
	store := openStore(t)

	created, err := store.Create(context.Background(), schedule.Definition{
		Name:       "Temp",
		Operations: []string{"dns-flush"},
		Frequency:  schedule.Daily,
		TimeOfDay:  "03:00",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(context.Background(), created.ID); !errors.Is(err, schedule.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(context.Background(), "missing"); !errors.Is(err, schedule.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestListOrdersByName(t *testing.T) {
	store := openStore(t)

	for _, name := range []string{"Zeta", "Alpha"} {
		if _, err := store.Create(context.Background(), schedule.Definition{
			Name:       name,
			Operations: []string{"dns-flush"},
			Frequency:  schedule.Daily,
			TimeOfDay:  "03:00",
		}); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	defs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(defs) != 2 || defs[0].Name != "Alpha" || defs[1].Name != "Zeta" {
		t.Fatalf("unexpected ordering: %+v", defs)
	}
}
