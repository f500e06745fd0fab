package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("zero limit: got %d", got)
	}
	if got := NormalizeLimit(500); got != MaxLimit {
		t.Fatalf("oversized limit: got %d", got)
	}
	if got := NormalizeLimit(7); got != 7 {
		t.Fatalf("in-range limit: got %d", got)
	}
}

func TestPageWindows(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	if got := Page(items, 0, 2); len(got) != 2 || got[0] != 1 {
		t.Fatalf("first page: got %v", got)
	}
	if got := Page(items, 4, 2); len(got) != 1 || got[0] != 5 {
		t.Fatalf("tail page: got %v", got)
	}
	if got := Page(items, 10, 2); len(got) != 0 {
		t.Fatalf("past-end page should be empty, got %v", got)
	}
	if got := Page(items, -3, 2); len(got) != 2 {
		t.Fatalf("negative offset should clamp, got %v", got)
	}
}
