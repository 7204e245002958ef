package core

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		elementType string
		want        Lifecycle
	}{
		{"column", LifecyclePermanent},
		{"beam", LifecyclePermanent},
		{"slab", LifecyclePermanent},
		{"foundation", LifecyclePermanent},
		{"roof", LifecyclePermanent},
		{"wall", LifecyclePermanent},
		{"structure", LifecyclePermanent},
		{"footing", LifecyclePermanent},
		{"pile", LifecyclePermanent},
		{"scaffold", LifecycleTemporary},
		{"formwork", LifecycleTemporary},
		{"equipment", LifecycleTemporary},
		{"fence", LifecycleTemporary},
		{"barrier", LifecycleTemporary},
		{"support", LifecycleTemporary},
		{"temporary", LifecycleTemporary},
		{"door", LifecycleFinishing},
		{"window", LifecycleFinishing},
		{"covering", LifecycleFinishing},
		{"railing", LifecycleFinishing},
		{"stair", LifecycleFinishing},
		{"curtainwall", LifecycleFinishing},
		{"panel", LifecycleFinishing},
		{"floor", LifecycleFinishing},
		{"antenna", LifecycleUnknown},
		{"", LifecycleUnknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.elementType); got != tc.want {
			t.Fatalf("Classify(%q) = %s, want %s", tc.elementType, got, tc.want)
		}
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	for _, elementType := range []string{"Column", "COLUMN", "cOlUmN"} {
		if got := Classify(elementType); got != LifecyclePermanent {
			t.Fatalf("Classify(%q) = %s, want %s", elementType, got, LifecyclePermanent)
		}
	}
	if got := Classify("SCAFFOLD"); got != LifecycleTemporary {
		t.Fatalf("Classify(SCAFFOLD) = %s, want %s", got, LifecycleTemporary)
	}
	if got := Classify("Window"); got != LifecycleFinishing {
		t.Fatalf("Classify(Window) = %s, want %s", got, LifecycleFinishing)
	}
}
