package ops_test

import (
	"errors"
	"testing"

	"upkeep/internal/ops"
)

func TestLookupKnownOperation(t *testing.T) {
	reg := ops.NewRegistry()

	def, err := reg.Lookup("disk-verify")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if def.Safety != ops.SafetyReportOnly {
		t.Fatalf("disk-verify safety = %q, want report-only", def.Safety)
	}
	if !def.RequiresElevation {
		t.Fatal("disk-verify should require elevation")
	}
	if len(def.Args) == 0 {
		t.Fatal("expected invocation args")
	}
}

func TestLookupUnknownOperationIsPermanent(t *testing.T) {
	reg := ops.NewRegistry()

	_, err := reg.Lookup("rm-rf-slash")
	if !errors.Is(err, ops.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if reg.Contains("rm-rf-slash") {
		t.Fatal("Contains must agree with Lookup")
	}
}

func TestLookupTrimsWhitespace(t *testing.T) {
	reg := ops.NewRegistry()
	if _, err := reg.Lookup("  dns-flush "); err != nil {
		t.Fatalf("Lookup with surrounding whitespace failed: %v", err)
	}
}

func TestCatalogIntegrity(t *testing.T) {
	reg := ops.NewRegistry()

	defs := reg.All()
	if len(defs) == 0 {
		t.Fatal("catalog is empty")
	}
	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		if def.ID == "" || def.Name == "" || def.Category == "" {
			t.Fatalf("incomplete definition: %+v", def)
		}
		if _, dup := seen[def.ID]; dup {
			t.Fatalf("duplicate operation id %q", def.ID)
		}
		seen[def.ID] = struct{}{}
		switch def.Safety {
		case ops.SafetyReportOnly, ops.SafetyGuarded, ops.SafetyDestructive:
		default:
			t.Fatalf("operation %q has unknown safety class %q", def.ID, def.Safety)
		}
		if def.ExpectedDuration <= 0 {
			t.Fatalf("operation %q missing expected duration", def.ID)
		}
		if len(def.Args) == 0 {
			t.Fatalf("operation %q has no invocation args", def.ID)
		}
	}
}

func TestDestructiveOperationsRequireElevation(t *testing.T) {
	reg := ops.NewRegistry()
	for _, def := range reg.All() {
		if def.Safety == ops.SafetyDestructive && !def.RequiresElevation {
			t.Fatalf("destructive operation %q must require elevation", def.ID)
		}
	}
}

func TestDerivedDisplayNames(t *testing.T) {
	reg := ops.NewRegistry()

	derived := map[string]string{
		"disk-repair": "Disk Repair",
		"trim-caches": "Trim Caches",
		"brew-update": "Brew Update",
	}
	for id, want := range derived {
		def, err := reg.Lookup(id)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", id, err)
		}
		if def.Name != want {
			t.Fatalf("derived name for %q: got %q, want %q", id, def.Name, want)
		}
	}

	// Acronym-bearing entries keep their hand-set names.
	def, err := reg.Lookup("macos-check")
	if err != nil {
		t.Fatalf("Lookup(macos-check): %v", err)
	}
	if def.Name != "Check macOS Updates" {
		t.Fatalf("explicit name overridden: got %q", def.Name)
	}
}
