package fusion

import "testing"

func TestDetectExpress(t *testing.T) {
	if express, name, color := detectExpress("C2", 7); !express || name != civisName || color != civisColor {
		t.Errorf("C2 with 7 stops: got (%v, %q, %q), want express CIVIS", express, name, color)
	}
	if express, _, _ := detectExpress("C2", 20); express {
		t.Error("C2 with 20 stops should not be classified as express")
	}
	if express, _, _ := detectExpress("R1", 5); express {
		t.Error("R1 has no CIVIS entry and should never be express")
	}
	if express, _, _ := detectExpress("C10", 0); express {
		t.Error("a zero stop count should never be classified as express")
	}
}
