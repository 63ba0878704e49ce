package main

import "testing"

func TestPlural(t *testing.T) {
	if got := plural(1, "y", "ies"); got != "y" {
		t.Errorf("plural(1, ...) = %q, want y", got)
	}
	if got := plural(0, "y", "ies"); got != "ies" {
		t.Errorf("plural(0, ...) = %q, want ies", got)
	}
	if got := plural(2, "y", "ies"); got != "ies" {
		t.Errorf("plural(2, ...) = %q, want ies", got)
	}
}

func TestStringSliceFlagAccumulates(t *testing.T) {
	var s stringSliceFlag
	if err := s.Set("fifo"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set("adder:fast_cfg"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if len(s) != 2 || s[0] != "fifo" || s[1] != "adder:fast_cfg" {
		t.Fatalf("stringSliceFlag after two Set calls = %v, want [fifo adder:fast_cfg]", s)
	}
	if got := s.String(); got != "fifo,adder:fast_cfg" {
		t.Errorf("String() = %q, want fifo,adder:fast_cfg", got)
	}
}
