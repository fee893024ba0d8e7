package tribool

import "testing"

func TestNewFromBool(t *testing.T) {
	if !NewFromBool(true).True() {
		t.Fatal("NewFromBool(true) is not true")
	}
	if !NewFromBool(false).False() {
		t.Fatal("NewFromBool(false) is not false")
	}
}

func TestNot(t *testing.T) {
	if True.Not() != False {
		t.Fatal("not true is not false")
	}
	if False.Not() != True {
		t.Fatal("not false is not true")
	}
	if Undef.Not() != Undef {
		t.Fatal("not undef is not undef")
	}
}

func TestString(t *testing.T) {
	for tb, want := range map[Tribool]string{True: "true", False: "false", Undef: "undef"} {
		if tb.String() != want {
			t.Fatalf("String() = %q, want %q", tb.String(), want)
		}
	}
}
