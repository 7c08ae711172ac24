// ABOUTME: Tests for ChunkEngine fixed-size windowing
// ABOUTME: Verifies reconstruction, bounds, overlap, and chunk ids

package core

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewChunkEngine(t *testing.T) {
	tests := []struct {
		name        string
		size        int
		overlap     int
		wantSize    int
		wantOverlap int
	}{
		{"explicit values", 100, 10, 100, 10},
		{"zero size uses default", 0, 0, DefaultChunkSize, 0},
		{"negative size uses default", -5, 0, DefaultChunkSize, 0},
		{"negative overlap clamps to zero", 50, -3, 50, 0},
		{"overlap not below size clamps", 10, 10, 10, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := NewChunkEngine(tt.size, tt.overlap)
			if ce.Size() != tt.wantSize {
				t.Errorf("Size() = %d, want %d", ce.Size(), tt.wantSize)
			}
			if ce.Overlap() != tt.wantOverlap {
				t.Errorf("Overlap() = %d, want %d", ce.Overlap(), tt.wantOverlap)
			}
		})
	}
}

func TestSplit_EmptyText(t *testing.T) {
	segs := Split("", 10, 0)
	if len(segs) != 0 {
		t.Errorf("Split(\"\") = %d segments, want 0", len(segs))
	}
}

func TestSplit_ShortTextSingleSegment(t *testing.T) {
	segs := Split("hello", 10, 0)
	if len(segs) != 1 || segs[0] != "hello" {
		t.Errorf("Split() = %q, want [hello]", segs)
	}
}

func TestSplit_WhitespaceIsKept(t *testing.T) {
	segs := Split("   ", 10, 0)
	if len(segs) != 1 {
		t.Fatalf("Split() = %d segments, want 1", len(segs))
	}
}

func TestSplit_Reconstructs(t *testing.T) {
	texts := []string{
		"a",
		"exactly ten",
		strings.Repeat("abcdefghij", 25),
		"Markets rallied on Tuesday.\n\nThe Fed held rates steady. Bond yields fell.",
		"Überweisung für 100€ – naïve café résumé 日本語のテキスト",
	}
	sizes := []int{1, 3, 7, 10, 1000}

	for _, text := range texts {
		for _, size := range sizes {
			segs := Split(text, size, 0)
			if got := strings.Join(segs, ""); got != text {
				t.Errorf("size %d: concatenation = %q, want %q", size, got, text)
			}
			for i, s := range segs {
				if n := utf8.RuneCountInString(s); n > size {
					t.Errorf("size %d: segment %d has %d chars", size, i, n)
				}
				if s == "" {
					t.Errorf("size %d: segment %d is empty", size, i)
				}
			}
		}
	}
}

func TestSplit_KeepsInvalidBytes(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{name: "lone continuation byte", text: "price\xffup", size: 4, overlap: 0},
		{name: "truncated multibyte", text: "caf\xc3 au lait \xe6\x97", size: 3, overlap: 0},
		{name: "invalid at boundary", text: "abc\x80def", size: 3, overlap: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := Split(tt.text, tt.size, tt.overlap)
			if got := strings.Join(segs, ""); got != tt.text {
				t.Errorf("Split(%q) concatenation = %q, want original bytes", tt.text, got)
			}
		})
	}
}

func TestSplit_SegmentCount(t *testing.T) {
	text := strings.Repeat("x", 2500)
	segs := Split(text, 1000, 0)
	if len(segs) != 3 {
		t.Fatalf("Split() = %d segments, want 3", len(segs))
	}
	if len(segs[2]) != 500 {
		t.Errorf("last segment = %d chars, want 500", len(segs[2]))
	}
}

func TestSplit_Overlap(t *testing.T) {
	segs := Split("abcdefghij", 4, 2)
	want := []string{"abcd", "cdef", "efgh", "ghij"}
	if len(segs) != len(want) {
		t.Fatalf("Split() = %q, want %q", segs, want)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segment %d = %q, want %q", i, segs[i], want[i])
		}
	}

	// Dropping the shared prefix of every later segment restores the text
	var sb strings.Builder
	sb.WriteString(segs[0])
	for _, s := range segs[1:] {
		sb.WriteString(s[2:])
	}
	if sb.String() != "abcdefghij" {
		t.Errorf("reconstructed = %q", sb.String())
	}
}

func TestSplit_OrderMatchesSource(t *testing.T) {
	segs := Split("0123456789", 3, 0)
	want := []string{"012", "345", "678", "9"}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segment %d = %q, want %q", i, segs[i], want[i])
		}
	}
}

func TestChunkTexts(t *testing.T) {
	ce := NewChunkEngine(5, 0)
	chunks := ce.ChunkTexts([]string{"aaaaabbbbb", "", "cc"}, []string{"doc-a", "doc-b", "doc-c"})

	if len(chunks) != 3 {
		t.Fatalf("ChunkTexts() = %d chunks, want 3", len(chunks))
	}

	wantText := []string{"aaaaa", "bbbbb", "cc"}
	wantSource := []string{"doc-a", "doc-a", "doc-c"}
	seen := make(map[string]bool)
	for i, c := range chunks {
		if c.Text != wantText[i] {
			t.Errorf("chunk %d text = %q, want %q", i, c.Text, wantText[i])
		}
		if c.Source != wantSource[i] {
			t.Errorf("chunk %d source = %q, want %q", i, c.Source, wantSource[i])
		}
		if !strings.HasPrefix(c.ID, "chunk_") {
			t.Errorf("chunk ID should start with 'chunk_': %s", c.ID)
		}
		if seen[c.ID] {
			t.Errorf("duplicate chunk ID: %s", c.ID)
		}
		seen[c.ID] = true
		if c.Vector != nil {
			t.Errorf("chunk %d should not be embedded yet", i)
		}
	}
}

func TestChunkTexts_MissingSources(t *testing.T) {
	ce := NewChunkEngine(10, 0)
	chunks := ce.ChunkTexts([]string{"one", "two"}, nil)
	if len(chunks) != 2 {
		t.Fatalf("ChunkTexts() = %d chunks, want 2", len(chunks))
	}
	for _, c := range chunks {
		if c.Source != "" {
			t.Errorf("Source = %q, want empty", c.Source)
		}
	}
}

func TestGenerateChunkID(t *testing.T) {
	id1 := generateChunkID()
	id2 := generateChunkID()

	if id1 == id2 {
		t.Error("generateChunkID() should produce unique IDs")
	}
	if len(id1) < 40 {
		t.Errorf("generateChunkID() = %q, too short", id1)
	}
}
