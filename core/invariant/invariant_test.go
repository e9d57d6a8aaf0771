package invariant

import "testing"

func TestCheckPanicsWithViolation(t *testing.T) {
	defer func() {
		v, ok := FromRecovered(recover())
		if !ok {
			t.Fatalf("expected *Violation panic")
		}
		if v.Message != "supply overflow for token-a" {
			t.Fatalf("unexpected message %q", v.Message)
		}
	}()
	Check(false, "supply overflow for %s", "token-a")
}

func TestCheckPassesQuietly(t *testing.T) {
	Check(true, "unreachable")
}
