package identity

import (
	"testing"

	"github.com/ashermasroor/SlowRvbBass/model"
)

func TestNewSourceIDShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := NewSourceID()
		if !IsSourceID(id) {
			t.Fatalf("NewSourceID() = %q, not a source id", id)
		}
		seen[id] = true
	}
	if len(seen) < 45 {
		t.Fatalf("expected mostly distinct ids, got %d distinct of 50", len(seen))
	}
}

func TestDeriveVariantIDDeterministic(t *testing.T) {
	params := model.EffectParameters{Speed: 0.8, Reverb: 35, BassBoost: true}
	first := DeriveVariantID("a1b2c3", params)
	for i := 0; i < 10; i++ {
		if got := DeriveVariantID("a1b2c3", params); got != first {
			t.Fatalf("call %d = %q, want %q", i, got, first)
		}
	}
	if len(first) != VariantIDLength || !IsVariantID(first) {
		t.Fatalf("variant id %q has wrong shape", first)
	}
}

func TestDeriveVariantIDStableAcrossRestarts(t *testing.T) {
	// Name-based UUIDs depend only on the input; this value must never change.
	got := CanonicalString("a1b2c3", model.EffectParameters{Speed: 1.25, Reverb: 50, BassBoost: false})
	want := "source=a1b2c3;speed=1.2500;reverb=50.0000;bass=false"
	if got != want {
		t.Fatalf("CanonicalString() = %q, want %q", got, want)
	}
}

func TestDeriveVariantIDNoopSentinel(t *testing.T) {
	tests := []struct {
		name   string
		params model.EffectParameters
	}{
		{name: "explicit defaults", params: model.EffectParameters{Speed: 1.0, Reverb: 0.0, BassBoost: false}},
		{name: "default constructor", params: model.DefaultEffectParameters()},
		{name: "float noise", params: model.EffectParameters{Speed: 1.000000001, Reverb: 0.00000001}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveVariantID("a1b2c3", tt.params); got != "a1b2c3-rawcopy" {
				t.Fatalf("DeriveVariantID() = %q, want a1b2c3-rawcopy", got)
			}
		})
	}
}

func TestDeriveVariantIDNoopDiffersPerSource(t *testing.T) {
	a := DeriveVariantID("aaaaaa", model.DefaultEffectParameters())
	b := DeriveVariantID("bbbbbb", model.DefaultEffectParameters())
	if a == b {
		t.Fatalf("no-op ids collide: %q", a)
	}
	if src, ok := SourceOf(a); !ok || src != "aaaaaa" {
		t.Fatalf("SourceOf(%q) = %q, %v", a, src, ok)
	}
}

func TestDeriveVariantIDIgnoresRepresentation(t *testing.T) {
	a := DeriveVariantID("a1b2c3", model.EffectParameters{Speed: 2, Reverb: 10})
	b := DeriveVariantID("a1b2c3", model.EffectParameters{Speed: 2.0, Reverb: 10.00000001})
	if a != b {
		t.Fatalf("ids differ for equivalent params: %q vs %q", a, b)
	}
}

func TestDeriveVariantIDDistinguishesParams(t *testing.T) {
	base := model.EffectParameters{Speed: 0.8, Reverb: 35}
	ids := map[string]model.EffectParameters{}
	for _, p := range []model.EffectParameters{
		base,
		{Speed: 0.8, Reverb: 35, BassBoost: true},
		{Speed: 0.9, Reverb: 35},
		{Speed: 0.8, Reverb: 36},
	} {
		id := DeriveVariantID("a1b2c3", p)
		if prev, ok := ids[id]; ok {
			t.Fatalf("collision between %v and %v: %q", prev, p, id)
		}
		ids[id] = p
	}
	if DeriveVariantID("a1b2c3", base) == DeriveVariantID("d4e5f6", base) {
		t.Fatal("different sources produced the same id")
	}
}

func TestIsVariantIDRejectsPaths(t *testing.T) {
	for _, s := range []string{"", "../etc", "a1b2c3", "ABCDEF12", "a1b2c3-rawcopy/..", "a1b2c3d4e"} {
		if IsVariantID(s) {
			t.Fatalf("IsVariantID(%q) = true", s)
		}
	}
}
