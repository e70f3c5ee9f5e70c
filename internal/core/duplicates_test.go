package core

import "testing"

func rec(id, hash string) Record {
	return Record{ID: id, ImageHash: hash}
}

func TestAnnotateDuplicatesPairsAndTriples(t *testing.T) {
	items := AnnotateDuplicates([]Record{
		rec("a", "h1"),
		rec("b", "h1"),
		rec("c", "h2"),
	})
	if items[0].DuplicateCount != 2 || !items[0].DuplicateHint {
		t.Fatalf("a: expected count=2 hint=true, got %d %v", items[0].DuplicateCount, items[0].DuplicateHint)
	}
	if items[1].DuplicateCount != 2 || !items[1].DuplicateHint {
		t.Fatalf("b: expected count=2 hint=true, got %d %v", items[1].DuplicateCount, items[1].DuplicateHint)
	}
	if items[2].DuplicateCount != 1 || items[2].DuplicateHint {
		t.Fatalf("c: expected count=1 hint=false, got %d %v", items[2].DuplicateCount, items[2].DuplicateHint)
	}

	// A third upload of the same receipt bumps everyone to three.
	items = AnnotateDuplicates([]Record{rec("a", "h1"), rec("b", "h1"), rec("d", "h1")})
	for _, it := range items {
		if it.DuplicateCount != 3 || !it.DuplicateHint {
			t.Fatalf("%s: expected count=3 hint=true, got %d %v", it.ID, it.DuplicateCount, it.DuplicateHint)
		}
	}
}

func TestAnnotateDuplicatesSingleRecord(t *testing.T) {
	items := AnnotateDuplicates([]Record{rec("a", "h1")})
	if items[0].DuplicateCount != 1 || items[0].DuplicateHint {
		t.Fatalf("expected count=1 hint=false, got %d %v", items[0].DuplicateCount, items[0].DuplicateHint)
	}
}

func TestAnnotateDuplicatesMissingHashExcluded(t *testing.T) {
	items := AnnotateDuplicates([]Record{
		rec("a", ""),
		rec("b", ""),
		rec("c", "h1"),
	})
	// Hashless legacy records never match each other or a present hash.
	for _, it := range items[:2] {
		if it.DuplicateCount != 0 || it.DuplicateHint {
			t.Fatalf("%s: expected count=0 hint=false, got %d %v", it.ID, it.DuplicateCount, it.DuplicateHint)
		}
	}
	if items[2].DuplicateCount != 1 || items[2].DuplicateHint {
		t.Fatalf("c: expected count=1 hint=false, got %d %v", items[2].DuplicateCount, items[2].DuplicateHint)
	}
}

func TestAnnotateDuplicatesEmptyWindow(t *testing.T) {
	if items := AnnotateDuplicates(nil); len(items) != 0 {
		t.Fatalf("expected empty result, got %d items", len(items))
	}
}
