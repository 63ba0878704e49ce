package sourcelib

import "testing"

func TestRegisterAndByName(t *testing.T) {
	r := NewRegistry()
	lib := r.Register("rtl")
	if lib.Name() != "rtl" {
		t.Fatalf("Name() = %q, want rtl", lib.Name())
	}
	got, ok := r.ByName("rtl")
	if !ok || got != lib {
		t.Fatalf("ByName(rtl) = (%v, %v), want (%v, true)", got, ok, lib)
	}
}

func TestRegisterTwiceShadowsButBothRemainInAll(t *testing.T) {
	r := NewRegistry()
	first := r.Register("rtl")
	second := r.Register("rtl")
	if first == second {
		t.Fatal("two Register calls with the same name must produce distinct *Library values")
	}
	got, ok := r.ByName("rtl")
	if !ok || got != second {
		t.Fatalf("ByName should resolve to the most recent registration, got %v want %v", got, second)
	}
	all := r.All()
	if len(all) != 2 || all[0] != first || all[1] != second {
		t.Fatalf("All() = %v, want [first, second] in registration order", all)
	}
}

func TestDefaultSortsLastInDefaultSearchOrder(t *testing.T) {
	r := NewRegistry()
	a := r.Register("a")
	b := r.Register("b")
	order := r.DefaultSearchOrder()
	want := []*Library{a, b, r.Default()}
	if len(order) != len(want) {
		t.Fatalf("DefaultSearchOrder() length = %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("DefaultSearchOrder()[%d] = %v, want %v", i, order[i], want[i])
		}
	}
	if !order[len(order)-1].IsDefault() {
		t.Error("last entry in DefaultSearchOrder() must be the sentinel default library")
	}
}

func TestParseExplicitOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("a")
	r.Register("b")

	order, err := r.ParseExplicitOrder([]string{"b", "a"})
	if err != nil {
		t.Fatalf("ParseExplicitOrder returned error: %v", err)
	}
	if len(order) != 2 || order[0].Name() != "b" || order[1].Name() != "a" {
		t.Fatalf("unexpected explicit order: %v", order)
	}

	// Explicit order does not implicitly append the default library.
	for _, l := range order {
		if l.IsDefault() {
			t.Error("default library must not appear unless named explicitly")
		}
	}
}

func TestParseExplicitOrderWithDefaultName(t *testing.T) {
	r := NewRegistry()
	r.Register("a")
	order, err := r.ParseExplicitOrder([]string{"a", "(default)"})
	if err != nil {
		t.Fatalf("ParseExplicitOrder returned error: %v", err)
	}
	if len(order) != 2 || !order[1].IsDefault() {
		t.Fatalf("expected default library to resolve explicitly by name, got %v", order)
	}
}

func TestParseExplicitOrderUnknownName(t *testing.T) {
	r := NewRegistry()
	if _, err := r.ParseExplicitOrder([]string{"nope"}); err == nil {
		t.Fatal("expected an error for an unregistered library name")
	}
}
