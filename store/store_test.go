package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/dicescript/compiler"
	"github.com/chazu/dicescript/vm"
	"github.com/chazu/dicescript/vm/dist"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "dice.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Error("Open with empty path succeeded")
	}
}

func TestProgramCache(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	src := "4D6 L1 [1-]{D6}"
	p, err := compiler.Compile(src)
	if err != nil {
		t.Fatal(err)
	}
	key := dist.SourceHash(src)

	if _, err := s.LookupProgram(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LookupProgram before save: error = %v, want ErrNotFound", err)
	}

	hash, err := s.SaveProgram(ctx, key, p)
	if err != nil {
		t.Fatalf("SaveProgram failed: %v", err)
	}
	want, _ := dist.ProgramHash(p)
	if hash != want {
		t.Errorf("SaveProgram hash = %s, want %s", hash, want)
	}

	got, err := s.LookupProgram(ctx, key)
	if err != nil {
		t.Fatalf("LookupProgram failed: %v", err)
	}
	if got.Source != src || got.Disassemble() != p.Disassemble() {
		t.Errorf("cached program differs:\n%s\nwant:\n%s", got.Disassemble(), p.Disassemble())
	}

	// Saving again replaces the entry.
	if _, err := s.SaveProgram(ctx, key, p); err != nil {
		t.Fatalf("second SaveProgram failed: %v", err)
	}
}

func TestCachedProgramReproducesRun(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	src := "6D10 2{D4 +S} H3"
	p, _ := compiler.Compile(src)
	hash, err := s.SaveProgram(ctx, dist.SourceHash(src), p)
	if err != nil {
		t.Fatal(err)
	}

	st, err := vm.NewExecutor(p, vm.WithSeed(1234)).Run(nil)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := s.RecordRun(ctx, Run{
		ProgramHash: hash,
		Seed:        1234,
		Cardinality: st.Pool.Cardinality(),
		Total:       st.Pool.Total(),
	})
	if err != nil {
		t.Fatal(err)
	}

	cached, err := s.LookupProgram(ctx, dist.SourceHash(src))
	if err != nil {
		t.Fatal(err)
	}
	again, err := vm.NewExecutor(cached, vm.WithSeed(rec.Seed)).Run(nil)
	if err != nil {
		t.Fatal(err)
	}
	if again.Pool.Total() != rec.Total || again.Pool.Cardinality() != rec.Cardinality {
		t.Errorf("replay gave %d dice totalling %d, recorded %d totalling %d",
			again.Pool.Cardinality(), again.Pool.Total(), rec.Cardinality, rec.Total)
	}
}

func TestRunLog(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for i := range 3 {
		r, err := s.RecordRun(ctx, Run{ProgramHash: "abc", Seed: int64(i), Cardinality: i, Total: 10 * i})
		if err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
		if r.ID == "" {
			t.Error("RecordRun did not assign an id")
		}
	}
	if _, err := s.RecordRun(ctx, Run{ProgramHash: "other"}); err != nil {
		t.Fatal(err)
	}

	runs, err := s.Runs(ctx, "abc")
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("len(runs) = %d, want 3", len(runs))
	}
	for i, r := range runs {
		if r.Seed != int64(i) || r.Total != 10*i {
			t.Errorf("runs[%d] = %+v, want seed %d", i, r, i)
		}
		if want := base.Add(time.Duration(i+1) * time.Second); !r.At.Equal(want) {
			t.Errorf("runs[%d].At = %v, want %v", i, r.At, want)
		}
	}
	if runs[0].ID == runs[1].ID {
		t.Error("runs share an id")
	}

	none, err := s.Runs(ctx, "missing")
	if err != nil || len(none) != 0 {
		t.Errorf("Runs(missing) = %v, %v; want empty", none, err)
	}
}

func TestRecordRunRequiresProgram(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.RecordRun(context.Background(), Run{Seed: 1}); err == nil {
		t.Error("RecordRun without program hash succeeded")
	}
}
