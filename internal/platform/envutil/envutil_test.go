package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	t.Setenv("LG_TEST_DUR", "45")
	if got := Duration("LG_TEST_DUR", time.Second); got != 45*time.Second {
		t.Fatalf("bare seconds: got %v", got)
	}
	t.Setenv("LG_TEST_DUR", "250ms")
	if got := Duration("LG_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("duration string: got %v", got)
	}
	t.Setenv("LG_TEST_DUR", "nope")
	if got := Duration("LG_TEST_DUR", time.Second); got != time.Second {
		t.Fatalf("invalid should fall back: got %v", got)
	}
}

func TestListAndBool(t *testing.T) {
	t.Setenv("LG_TEST_LIST", " quiz, ,lesson ")
	got := List("LG_TEST_LIST", nil)
	if len(got) != 2 || got[0] != "quiz" || got[1] != "lesson" {
		t.Fatalf("List: %#v", got)
	}
	t.Setenv("LG_TEST_BOOL", "off")
	if Bool("LG_TEST_BOOL", true) {
		t.Fatalf("Bool: expected false")
	}
	if Float("LG_TEST_MISSING", 1.5) != 1.5 {
		t.Fatalf("Float default not honored")
	}
}
