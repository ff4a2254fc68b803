package ratelimit

import "testing"

func TestAllowExhaustsBucket(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("k", 3, 0.001) {
			t.Fatalf("request %d rejected with tokens left", i)
		}
	}
	if l.Allow("k", 3, 0.001) {
		t.Fatalf("request allowed on empty bucket")
	}
}

func TestKeysIndependent(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0.001) {
		t.Fatalf("first key rejected")
	}
	if l.Allow("a", 1, 0.001) {
		t.Fatalf("exhausted key allowed")
	}
	if !l.Allow("b", 1, 0.001) {
		t.Fatalf("fresh key rejected")
	}
}
