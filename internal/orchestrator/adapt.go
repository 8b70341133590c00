package orchestrator

import (
	"github.com/nerrad567/tavernlight-core/internal/catalog"
	"github.com/nerrad567/tavernlight-core/internal/lighting"
)

// Ambient fallbacks used when the active scene's lighting omits them.
const (
	DefaultAmbientBrightness = 128
	defaultAmbientLevel      = 128
)

// DefaultAmbientColor is mid-grey.
var DefaultAmbientColor = lighting.RGB{defaultAmbientLevel, defaultAmbientLevel, defaultAmbientLevel}

// AdaptTrigger returns a copy of t fitted to the ambient scene. t is never
// modified.
//
// Every WLED event in the copy uses the solid effect. When scene is not nil,
// every event that fades (duration > 0) and is not instantaneous (delay > 0)
// takes the scene's brightness and colour, so a "flash then fade back"
// trigger fades back into the running ambience.
func AdaptTrigger(t *catalog.Trigger, scene *catalog.Scene) *catalog.Trigger {
	out := t.DeepCopy()
	if out == nil {
		return nil
	}

	brightness := DefaultAmbientBrightness
	color := DefaultAmbientColor
	if w := scene.WLED(); w != nil {
		if w.Brightness != nil {
			brightness = *w.Brightness
		}
		if w.Color != nil {
			color = *w.Color
		}
	}

	for i := range out.Sequence {
		ev := &out.Sequence[i]
		if ev.Lighting == nil || ev.Lighting.WLED == nil {
			continue
		}
		w := ev.Lighting.WLED
		w.Effect = lighting.EffectSolid

		if scene != nil && ev.Delay > 0 && w.DurationMS() > 0 {
			w.Brightness = lighting.Int(brightness)
			c := color
			w.Color = &c
		}
	}
	return out
}
