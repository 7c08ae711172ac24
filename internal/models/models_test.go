// ABOUTME: Tests for the shared payload, result and outcome types
// ABOUTME: Covers success/failure accessors and the helpers built on them
package models

import (
	"strings"
	"testing"
)

func TestResult(t *testing.T) {
	ok := Success([]string{"a"})
	if !ok.Ok() || ok.Kind() != "" || ok.Reason() != "" {
		t.Errorf("Success = %v", ok)
	}
	if v, got := ok.Value(); !got || len(v) != 1 {
		t.Errorf("Value() = %v, %v", v, got)
	}

	failed := Failuref[int](KindTimeout, "market data agent timed out after %s", "30s")
	if failed.Ok() {
		t.Error("Failure should not be Ok")
	}
	if v, got := failed.Value(); got || v != 0 {
		t.Errorf("Value() = %v, %v, want zero value", v, got)
	}
	if got := failed.String(); got != "Failure(timeout: market data agent timed out after 30s)" {
		t.Errorf("String() = %q", got)
	}
}

func TestFailureKind_Retryable(t *testing.T) {
	tests := []struct {
		kind FailureKind
		want bool
	}{
		{KindUnavailable, true},
		{KindTimeout, true},
		{KindRateLimited, false},
		{KindRejected, false},
		{KindResponseShape, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Retryable(); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOutcome(t *testing.T) {
	n := NarrativeOutcome("AAPL is at 150.")
	if n.Failed() || n.Text() != "AAPL is at 150." {
		t.Errorf("narrative outcome = %+v", n)
	}

	f := FailedOutcome(KindRejected, "no data for symbol ZZZZ")
	if !f.Failed() || f.Text() != "no data for symbol ZZZZ" || f.Narrative != "" {
		t.Errorf("failed outcome = %+v", f)
	}
}

func TestChunk_ValidateDimension(t *testing.T) {
	tests := []struct {
		name    string
		vector  []float64
		dim     int
		wantErr string
	}{
		{name: "match", vector: []float64{1, 0, 0}, dim: 3},
		{name: "empty", vector: nil, dim: 3, wantErr: "cannot be empty"},
		{name: "mismatch", vector: []float64{1, 0}, dim: 3, wantErr: "expected 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Chunk{ID: "c1", Vector: tt.vector}.ValidateDimension(tt.dim)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateDimension() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateDimension() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestTexts(t *testing.T) {
	hits := []ScoredChunk{
		{Chunk: Chunk{Text: "first"}, Score: 0.9},
		{Chunk: Chunk{Text: "second"}, Score: 0.4},
	}
	got := Texts(hits)
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("Texts() = %v", got)
	}
	if got := Texts(nil); got == nil || len(got) != 0 {
		t.Errorf("Texts(nil) = %#v, want empty slice", got)
	}
}

func TestIngestionReport_Failed(t *testing.T) {
	r := IngestionReport{Sources: []SourceResult{
		{Source: "https://a.example", Kind: SourceURL, Segments: 2},
		{Source: "/tmp/missing.pdf", Kind: SourceFile, Error: "no such file"},
	}}
	failed := r.Failed()
	if len(failed) != 1 || failed[0].Source != "/tmp/missing.pdf" {
		t.Errorf("Failed() = %+v", failed)
	}
}

func TestMarketData_HasQuote(t *testing.T) {
	if (MarketData{Note: "market data agent cannot answer"}).HasQuote() {
		t.Error("note-only market data should not have a quote")
	}
	if !(MarketData{Symbol: "AAPL", Price: "150.0000"}).HasQuote() {
		t.Error("symbol and price should be a quote")
	}
}
