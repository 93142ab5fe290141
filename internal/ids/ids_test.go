package ids

import "testing"

func TestNewIsSortable(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		if next <= prev {
			t.Fatalf("expected %s > %s", next, prev)
		}
		prev = next
	}
}

func TestNewSession(t *testing.T) {
	a, b := NewSession(), NewSession()
	if a == b {
		t.Fatalf("expected distinct session ids")
	}
	if !IsSession(a) {
		t.Fatalf("expected %q to parse as session id", a)
	}
	if IsSession("not-a-session") {
		t.Fatalf("unexpected session id match")
	}
}
