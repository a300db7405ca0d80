package timeline

import (
	"reflect"
	"testing"
)

func TestParseSynced(t *testing.T) {
	raw := "[00:01.00]Hello\n[00:03.50]World"

	lines, status, warns := Parse(raw)
	if status != StatusSynced {
		t.Fatalf("status = %v, want synced", status)
	}
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	want := []Line{
		{TimestampMs: 1000, Text: "Hello"},
		{TimestampMs: 3500, Text: "World"},
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %v, want %v", lines, want)
	}
}

func TestParseMultipleTagsPerLine(t *testing.T) {
	raw := "[00:05.00][01:10.00]chorus line"

	lines, status, _ := Parse(raw)
	if status != StatusSynced {
		t.Fatalf("status = %v, want synced", status)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].TimestampMs != 5000 || lines[1].TimestampMs != 70_000 {
		t.Errorf("timestamps = %d, %d", lines[0].TimestampMs, lines[1].TimestampMs)
	}
	if lines[0].Text != "chorus line" || lines[1].Text != "chorus line" {
		t.Errorf("both tags should share the text, got %q and %q", lines[0].Text, lines[1].Text)
	}
}

func TestParseFractionScaling(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"[00:01.5]x", 1500},
		{"[00:01.49]x", 1490},
		{"[00:01.490]x", 1490},
		{"[00:01]x", 1000},
		{"[02:30.00]x", 150_000},
	}
	for _, tt := range tests {
		lines, _, _ := Parse(tt.raw)
		if len(lines) != 1 {
			t.Fatalf("%q: got %d lines", tt.raw, len(lines))
		}
		if lines[0].TimestampMs != tt.want {
			t.Errorf("%q: ts = %d, want %d", tt.raw, lines[0].TimestampMs, tt.want)
		}
	}
}

func TestParseMalformedTags(t *testing.T) {
	// seconds out of range on the first tag; the second tag is valid so the
	// line survives through it
	raw := "[00:75.00][00:10.00]still here\n[00:99.00]gone"

	lines, status, warns := Parse(raw)
	if status != StatusSynced {
		t.Fatalf("status = %v, want synced", status)
	}
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %v", len(lines), lines)
	}
	if lines[0].Text != "still here" || lines[0].TimestampMs != 10_000 {
		t.Errorf("unexpected surviving line: %+v", lines[0])
	}
	if len(warns) != 2 {
		t.Errorf("got %d warnings, want 2: %v", len(warns), warns)
	}
}

func TestParseNonNumericTags(t *testing.T) {
	raw := "[00:01.00]Hello\n[ab:cd.ef]mystery"

	lines, status, warns := Parse(raw)
	if status != StatusSynced {
		t.Fatalf("status = %v, want synced", status)
	}
	if len(lines) != 1 || lines[0].Text != "Hello" {
		t.Fatalf("lines = %v, want just the valid one", lines)
	}
	if len(warns) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(warns), warns)
	}
	if warns[0].Token != "[ab:cd.ef]" || warns[0].LineNo != 2 {
		t.Errorf("warning = %+v, want the non-numeric token on line 2", warns[0])
	}
}

func TestParseUnsynced(t *testing.T) {
	raw := "just some words\nanother line\n\nlast one"

	lines, status, _ := Parse(raw)
	if status != StatusUnsynced {
		t.Fatalf("status = %v, want unsynced", status)
	}
	want := []Line{
		{Text: "just some words"},
		{Text: "another line"},
		{Text: "last one"},
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("lines = %v, want %v", lines, want)
	}
}

func TestParseDegenerateTimestamps(t *testing.T) {
	raw := "[00:00.00]one\n[00:00.00]two\n[00:00.00]three"

	lines, status, _ := Parse(raw)
	if status != StatusUnsynced {
		t.Fatalf("status = %v, want unsynced for identical timestamps", status)
	}
	if len(lines) != 3 {
		t.Errorf("got %d lines, want 3", len(lines))
	}
}

func TestParseEmpty(t *testing.T) {
	for _, raw := range []string{"", "   \n\t\n  "} {
		lines, status, _ := Parse(raw)
		if status != StatusNotFound {
			t.Errorf("Parse(%q) status = %v, want not found", raw, status)
		}
		if len(lines) != 0 {
			t.Errorf("Parse(%q) returned %d lines, want 0", raw, len(lines))
		}
	}
}

func TestParseSortStableAndIdempotent(t *testing.T) {
	raw := "[00:10.00]b\n[00:05.00]a\n[00:10.00]c"

	first, status, _ := Parse(raw)
	if status != StatusSynced {
		t.Fatalf("status = %v", status)
	}

	// non-decreasing timestamps, ties keep input order
	for i := 1; i < len(first); i++ {
		if first[i].TimestampMs < first[i-1].TimestampMs {
			t.Fatalf("timestamps decrease at %d: %v", i, first)
		}
	}
	if first[1].Text != "b" || first[2].Text != "c" {
		t.Errorf("tie order not preserved: %v", first)
	}

	second, _, _ := Parse(raw)
	if !reflect.DeepEqual(first, second) {
		t.Error("re-parsing the same input produced a different sequence")
	}
}

func TestActiveIndex(t *testing.T) {
	tl := &Timeline{
		Status: StatusSynced,
		Lines: []Line{
			{TimestampMs: 0, Text: "a"},
			{TimestampMs: 5000, Text: "b"},
			{TimestampMs: 10_000, Text: "c"},
		},
	}

	tests := []struct {
		pos  int64
		want int
	}{
		{-1, -1},
		{0, 0},
		{4999, 0},
		{5000, 1},
		{7000, 1},
		{10_000, 2},
		{99_999, 2},
	}
	for _, tt := range tests {
		if got := tl.ActiveIndex(tt.pos); got != tt.want {
			t.Errorf("ActiveIndex(%d) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestActiveIndexDisabledWhenNotSynced(t *testing.T) {
	tl := &Timeline{
		Status: StatusUnsynced,
		Lines:  []Line{{Text: "a"}, {Text: "b"}},
	}
	if got := tl.ActiveIndex(5000); got != -1 {
		t.Errorf("ActiveIndex on unsynced = %d, want -1", got)
	}

	var nilTl *Timeline
	if got := nilTl.ActiveIndex(0); got != -1 {
		t.Errorf("ActiveIndex on nil = %d, want -1", got)
	}
}
