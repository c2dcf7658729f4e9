package server

import (
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnosticsFor_Valid(t *testing.T) {
	diags := diagnosticsFor("3D6 4+\n[1-]{D6}\n")
	if diags == nil || len(diags) != 0 {
		t.Errorf("diagnostics = %v, want empty non-nil slice", diags)
	}
}

func TestDiagnosticsFor_Ranges(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		line, col protocol.UInteger
		msg       string
	}{
		{"bad token", "3D6\n  x", 1, 2, "no valid token"},
		{"missing postfix", "D", 0, 1, "needs an integer"},
		{"unterminated block", "1\n2\n  3{\n+1", 2, 3, "unterminated"},
		{"nested unterminated", "{\n [1-]{ {+1}\n", 1, 5, "unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := diagnosticsFor(tt.text)
			if len(diags) != 1 {
				t.Fatalf("diagnostics = %v, want exactly one", diags)
			}
			d := diags[0]
			want := protocol.Range{
				Start: protocol.Position{Line: tt.line, Character: tt.col},
				End:   protocol.Position{Line: tt.line, Character: tt.col + 1},
			}
			if d.Range != want {
				t.Errorf("range = %+v, want %+v", d.Range, want)
			}
			if !strings.Contains(d.Message, tt.msg) {
				t.Errorf("message = %q, want it to contain %q", d.Message, tt.msg)
			}
			if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityError {
				t.Errorf("severity = %v, want error", d.Severity)
			}
			if d.Source == nil || *d.Source != lspName {
				t.Errorf("source = %v, want %s", d.Source, lspName)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Hover and completion
// ---------------------------------------------------------------------------

func TestHoverAt(t *testing.T) {
	text := "3D6\n  H2 # keep\n"
	tests := []struct {
		line, char protocol.UInteger
		want       string // operator name, or "" for no hover
	}{
		{0, 1, "roll"},
		{0, 0, ""}, // digit
		{1, 2, "high"},
		{1, 0, ""},  // whitespace
		{1, 20, ""}, // past end of line
		{0, 3, ""},  // the newline itself
		{7, 0, ""},  // past end of text
	}

	for _, tt := range tests {
		h := hoverAt(text, protocol.Position{Line: tt.line, Character: tt.char})
		if tt.want == "" {
			if h != nil {
				t.Errorf("hoverAt(%d:%d) = %v, want nil", tt.line, tt.char, h.Contents)
			}
			continue
		}
		if h == nil {
			t.Errorf("hoverAt(%d:%d) = nil, want %s", tt.line, tt.char, tt.want)
			continue
		}
		mc, ok := h.Contents.(protocol.MarkupContent)
		if !ok || !strings.Contains(mc.Value, tt.want) {
			t.Errorf("hoverAt(%d:%d) contents = %v, want %s", tt.line, tt.char, h.Contents, tt.want)
		}
	}
}

func TestCompletionItems(t *testing.T) {
	items := completionItems()
	if len(items) != 12 {
		t.Fatalf("len(items) = %d, want 12", len(items))
	}
	seen := map[string]bool{}
	for _, it := range items {
		seen[it.Label] = true
		if it.Detail == nil || *it.Detail == "" {
			t.Errorf("item %q has no detail", it.Label)
		}
	}
	for _, want := range []string{"D", "+", "{", "["} {
		if !seen[want] {
			t.Errorf("completion missing %q", want)
		}
	}
}

func TestDocumentStore(t *testing.T) {
	s := NewLSP()
	uri := protocol.DocumentUri("file:///tmp/a.dice")
	if _, ok := s.doc(uri); ok {
		t.Fatal("unknown document found")
	}
	s.setDoc(uri, "3D6")
	if text, ok := s.doc(uri); !ok || text != "3D6" {
		t.Errorf("doc = %q, %v", text, ok)
	}
}
