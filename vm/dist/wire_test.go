package dist

import (
	"strings"
	"testing"

	"github.com/chazu/dicescript/compiler"
	"github.com/chazu/dicescript/vm"
)

func compile(t *testing.T, src string) *vm.Program {
	t.Helper()
	p, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("Compile(%q) error: %v", src, err)
	}
	return p
}

func TestProgramRoundTripRunsIdentically(t *testing.T) {
	scripts := []string{
		"3D6",
		"4D6 L1 {+1}",
		"10D6 [1-]{D6} 2[6+]{*2} G",
		"V0 5{D20 H1} [10-]",
	}

	for _, src := range scripts {
		orig := compile(t, src)
		data, err := MarshalProgram(orig)
		if err != nil {
			t.Fatalf("MarshalProgram(%q) error: %v", src, err)
		}
		decoded, err := UnmarshalProgram(data)
		if err != nil {
			t.Fatalf("UnmarshalProgram(%q) error: %v", src, err)
		}

		if decoded.Source != src {
			t.Errorf("Source = %q, want %q", decoded.Source, src)
		}
		if got, want := decoded.Disassemble(), orig.Disassemble(); got != want {
			t.Errorf("%q listing differs after round trip:\n%s\nwant:\n%s", src, got, want)
		}

		a, err := vm.NewExecutor(orig, vm.WithSeed(5)).Run(nil)
		if err != nil {
			t.Fatalf("run original %q: %v", src, err)
		}
		b, err := vm.NewExecutor(decoded, vm.WithSeed(5)).Run(nil)
		if err != nil {
			t.Fatalf("run decoded %q: %v", src, err)
		}
		if !a.Pool.Equal(b.Pool) {
			t.Errorf("%q: original gave %v, decoded gave %v", src, a.Pool, b.Pool)
		}
	}
}

func TestProgramHashStable(t *testing.T) {
	h1, err := ProgramHash(compile(t, "2[6+]{D6}"))
	if err != nil {
		t.Fatal(err)
	}
	h2, err := ProgramHash(compile(t, "2[6+]{D6}"))
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Errorf("hash differs for identical programs: %s vs %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("len(hash) = %d, want 64", len(h1))
	}

	h3, _ := ProgramHash(compile(t, "2[6+]{D8}"))
	if h3 == h1 {
		t.Error("different programs share a hash")
	}
}

func TestSourceHash(t *testing.T) {
	if SourceHash("3D6") == SourceHash("3D6 ") {
		t.Error("SourceHash ignores whitespace")
	}
	if SourceHash("3D6") != SourceHash("3D6") {
		t.Error("SourceHash is not deterministic")
	}
}

func TestUnmarshalRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		prog *vm.Program
		want string
	}{
		{"unknown opcode", &vm.Program{Code: []vm.Instruction{{Op: 0xEE}}}, "unknown opcode"},
		{"repeat without body", &vm.Program{Code: []vm.Instruction{{Op: vm.OpRepeat}}}, "without body"},
		{
			"nested unknown opcode",
			&vm.Program{Code: []vm.Instruction{{
				Op:     vm.OpFilter,
				Filter: &vm.Program{Code: []vm.Instruction{{Op: 0x7F}}},
			}}},
			"unknown opcode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalProgram(tt.prog)
			if err != nil {
				t.Fatal(err)
			}
			_, err = UnmarshalProgram(data)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}

	if _, err := UnmarshalProgram([]byte{0xff, 0x00}); err == nil {
		t.Error("garbage decoded without error")
	}
}
