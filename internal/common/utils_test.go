package common

import "testing"

func TestHasAny(t *testing.T) {
	if !HasAny("No results found.", "zero_results", "no results") {
		t.Fatalf("expected case-insensitive match")
	}
	if HasAny("REQUEST_DENIED", "no results") {
		t.Fatalf("unexpected match")
	}
	if HasAny("anything") {
		t.Fatalf("no substrings should never match")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", " 90210 ", "10001"); got != "90210" {
		t.Fatalf("got %q", got)
	}
	if got := FirstNonEmpty("", " "); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
