package utils

import "testing"

func TestT_Fallback(t *testing.T) {
	if got := T("fr", "factor.burnout"); got != "Усталость/выгорание" {
		t.Fatalf("fallback to ru failed: %s", got)
	}
	if got := T("en", "no.such.key"); got != "no.such.key" {
		t.Fatalf("missing key should echo, got %s", got)
	}
}

func TestTf_WeekLabel(t *testing.T) {
	if got := Tf("ru", "dynamics.week", 3); got != "3 нед." {
		t.Fatalf("want '3 нед.', got %q", got)
	}
}

func TestDays(t *testing.T) {
	cases := map[int]string{1: "1 день", 3: "3 дня", 11: "11 дней", 14: "14 дней", 21: "21 день", 22: "22 дня"}
	for n, want := range cases {
		if got := Days("ru", n); got != want {
			t.Fatalf("Days(ru, %d) = %q, want %q", n, got, want)
		}
	}
	if got := Days("en", 14); got != "14 days" {
		t.Fatalf("Days(en, 14) = %q", got)
	}
}
