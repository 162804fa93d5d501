package liveid

import (
	"sort"
	"strings"
	"testing"
)

func TestNextPrefixAndLength(t *testing.T) {
	id := NewSource().Next()
	if !strings.HasPrefix(id, "live-") {
		t.Fatalf("expected live- prefix, got %q", id)
	}
	if len(id) != len("live-")+26 {
		t.Fatalf("expected 26-char ULID after prefix, got %q", id)
	}
}

func TestNextMonotonicOrder(t *testing.T) {
	s := NewSource()
	ids := make([]string, 200)
	for i := range ids {
		ids[i] = s.Next()
	}
	if !sort.StringsAreSorted(ids) {
		t.Fatalf("ids are not in creation order")
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
}
