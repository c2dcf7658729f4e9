// Package dist encodes compiled Programs for storage and exchange.
//
// Programs are encoded as canonical CBOR with integer keys, so the same
// Program always produces the same bytes and ProgramHash is stable across
// processes.
package dist

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/dicescript/vm"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dist: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalProgram serializes a Program, nested blocks included.
func MarshalProgram(p *vm.Program) ([]byte, error) {
	data, err := cborEncMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("dist: marshal program: %w", err)
	}
	return data, nil
}

// UnmarshalProgram deserializes a Program and checks that every opcode in it
// is one the executor knows.
func UnmarshalProgram(data []byte) (*vm.Program, error) {
	var p vm.Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("dist: unmarshal program: %w", err)
	}
	if err := validate(&p); err != nil {
		return nil, fmt.Errorf("dist: unmarshal program: %w", err)
	}
	return &p, nil
}

var known = func() map[vm.Opcode]bool {
	m := make(map[vm.Opcode]bool)
	for _, op := range vm.AllOpcodes() {
		m[op] = true
	}
	return m
}()

func validate(p *vm.Program) error {
	for i, in := range p.Code {
		if !known[in.Op] {
			return fmt.Errorf("instruction %d: unknown opcode 0x%02X", i, byte(in.Op))
		}
		switch in.Op {
		case vm.OpRepeat:
			if in.Body == nil {
				return fmt.Errorf("instruction %d: repeat without body", i)
			}
		case vm.OpFilter:
			if in.Filter == nil {
				return fmt.Errorf("instruction %d: filter without match program", i)
			}
		}
		for _, sub := range []*vm.Program{in.Body, in.Filter} {
			if sub == nil {
				continue
			}
			if err := validate(sub); err != nil {
				return err
			}
		}
	}
	return nil
}

// SourceHash returns the hex sha256 of a script's text. It keys the program
// cache.
func SourceHash(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// ProgramHash returns the hex sha256 of a Program's canonical encoding.
func ProgramHash(p *vm.Program) (string, error) {
	data, err := MarshalProgram(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
