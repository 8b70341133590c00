package orchestrator

import (
	"reflect"
	"testing"

	"github.com/nerrad567/tavernlight-core/internal/catalog"
	"github.com/nerrad567/tavernlight-core/internal/lighting"
)

func mustCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatalf("catalog.Parse() error = %v", err)
	}
	return c
}

func mustTrigger(t *testing.T, c *catalog.Catalog, id string) *catalog.Trigger {
	t.Helper()
	trig, err := c.Trigger(id)
	if err != nil {
		t.Fatalf("Trigger(%q) error = %v", id, err)
	}
	return trig
}

func mustScene(t *testing.T, c *catalog.Catalog, id string) *catalog.Scene {
	t.Helper()
	s, err := c.Scene(id)
	if err != nil {
		t.Fatalf("Scene(%q) error = %v", id, err)
	}
	return s
}

func TestAdaptTrigger_ForcesSolidEffect(t *testing.T) {
	c := mustCatalog(t)
	out := AdaptTrigger(mustTrigger(t, c, "flash"), nil)

	for i, ev := range out.Sequence {
		if got := ev.Lighting.WLED.Effect; got != lighting.EffectSolid {
			t.Errorf("event %d effect = %q, want solid", i, got)
		}
	}
	// Without a scene the fade target is untouched.
	if got := *out.Sequence[1].Lighting.WLED.Brightness; got != 5 {
		t.Errorf("fade brightness = %d, want 5", got)
	}
}

func TestAdaptTrigger_FadesBackToScene(t *testing.T) {
	c := mustCatalog(t)
	trig := mustTrigger(t, c, "flash")

	tests := []struct {
		name      string
		scene     *catalog.Scene
		wantBri   int
		wantColor lighting.RGB
	}{
		{"scene brightness and colour", mustScene(t, c, "tavern"), 128, lighting.RGB{255, 140, 60}},
		{"scene without colour uses defaults", mustScene(t, c, "plain"), DefaultAmbientBrightness, DefaultAmbientColor},
		{"scene without lighting uses defaults", mustScene(t, c, "hubonly"), 128, lighting.RGB{128, 128, 128}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := AdaptTrigger(trig, tt.scene)

			first := out.Sequence[0].Lighting.WLED
			if *first.Brightness != 255 || *first.Color != (lighting.RGB{255, 255, 255}) {
				t.Errorf("instantaneous flash rewritten: bri=%d color=%v", *first.Brightness, *first.Color)
			}

			fade := out.Sequence[1].Lighting.WLED
			if *fade.Brightness != tt.wantBri {
				t.Errorf("fade brightness = %d, want %d", *fade.Brightness, tt.wantBri)
			}
			if *fade.Color != tt.wantColor {
				t.Errorf("fade colour = %v, want %v", *fade.Color, tt.wantColor)
			}
			if fade.DurationMS() != 800 {
				t.Errorf("fade duration = %d, want 800", fade.DurationMS())
			}
		})
	}
}

func TestAdaptTrigger_SkipsEventsWithoutFade(t *testing.T) {
	c := mustCatalog(t)
	out := AdaptTrigger(mustTrigger(t, c, "lightning"), mustScene(t, c, "tavern"))

	// Delay 0: instantaneous, even though it has a duration.
	if got := *out.Sequence[0].Lighting.WLED.Brightness; got != 255 {
		t.Errorf("first event brightness = %d, want 255", got)
	}
	// Delay > 0 but no duration.
	restore := out.Sequence[2].Lighting.WLED
	if !restore.Restore || restore.Brightness != nil || restore.Color != nil {
		t.Errorf("restore event rewritten: %+v", restore)
	}
}

func TestAdaptTrigger_LeavesSourceUntouched(t *testing.T) {
	c := mustCatalog(t)
	source := mustTrigger(t, c, "flash")
	before := source.DeepCopy()

	withTavern := AdaptTrigger(source, mustScene(t, c, "tavern"))
	withForest := AdaptTrigger(source, mustScene(t, c, "forest"))

	if !reflect.DeepEqual(source, before) {
		t.Fatal("AdaptTrigger modified its input")
	}
	if reflect.DeepEqual(withTavern, withForest) {
		t.Error("different scenes produced identical adaptations")
	}
	if *withForest.Sequence[1].Lighting.WLED.Brightness != 60 {
		t.Errorf("forest fade brightness = %d, want 60", *withForest.Sequence[1].Lighting.WLED.Brightness)
	}

	// Mutating the result must not reach the source either.
	*withTavern.Sequence[0].Lighting.WLED.Brightness = 1
	if *source.Sequence[0].Lighting.WLED.Brightness != 255 {
		t.Error("adapted sequence shares memory with its source")
	}
}

func TestAdaptTrigger_Nil(t *testing.T) {
	if AdaptTrigger(nil, nil) != nil {
		t.Error("AdaptTrigger(nil) should be nil")
	}
}
