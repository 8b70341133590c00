package lighting

import (
	"github.com/nerrad567/tavernlight-core/internal/lighting/wled"
)

// RGB is a colour triple, each component 0-255.
type RGB [3]int

// Intent is a device-independent description of a desired lighting state.
// Nil fields mean "leave unchanged".
type Intent struct {
	Brightness *int   `yaml:"brightness,omitempty" json:"brightness,omitempty"`
	Color      *RGB   `yaml:"color,omitempty" json:"color,omitempty"`
	Effect     string `yaml:"effect,omitempty" json:"effect,omitempty"`
	Speed      *int   `yaml:"speed,omitempty" json:"speed,omitempty"`
	Intensity  *int   `yaml:"intensity,omitempty" json:"intensity,omitempty"`

	// Duration is the transition time in milliseconds.
	Duration *int `yaml:"duration,omitempty" json:"duration,omitempty"`

	// Restore re-sends the snapshot taken by SaveState; other fields are ignored.
	Restore bool `yaml:"restore,omitempty" json:"restore,omitempty"`
}

// DeepCopy returns an independent copy of the intent.
func (i *Intent) DeepCopy() *Intent {
	if i == nil {
		return nil
	}
	cp := *i
	cp.Brightness = copyInt(i.Brightness)
	cp.Speed = copyInt(i.Speed)
	cp.Intensity = copyInt(i.Intensity)
	cp.Duration = copyInt(i.Duration)
	if i.Color != nil {
		c := *i.Color
		cp.Color = &c
	}
	return &cp
}

// DurationMS returns the transition in milliseconds, or 0 when unset.
func (i *Intent) DurationMS() int {
	if i == nil || i.Duration == nil {
		return 0
	}
	return *i.Duration
}

// IsVisual reports whether the intent sets anything that requires the strip to be on.
func (i *Intent) IsVisual() bool {
	return i.Brightness != nil || i.Color != nil || i.Effect != ""
}

// Int returns a pointer to v, for building Intent literals.
func Int(v int) *int { return &v }

// Color returns a pointer to an RGB triple, for building Intent literals.
func Color(r, g, b int) *RGB { return &RGB{r, g, b} }

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// BuildState translates an intent into a WLED state update.
//
// Omitted intent fields are omitted from the payload. The strip is switched
// on whenever brightness, colour or effect is set. Values are clamped to the
// 0-255 range WLED accepts, and unknown effect names fall back to solid.
func BuildState(i *Intent, overrideLive bool) wled.State {
	var s wled.State
	if i == nil {
		return s
	}

	if i.IsVisual() {
		s.On = wled.Bool(true)
	}
	if i.Brightness != nil {
		s.Brightness = wled.Int(clampByte(*i.Brightness))
	}
	if i.Duration != nil {
		s.Transition = wled.Int(wled.TransitionUnits(*i.Duration))
	}
	if overrideLive {
		s.LiveLock = wled.Int(1)
	}

	var seg wled.Segment
	touched := false
	if i.Color != nil {
		seg.Colors = [][3]int{{clampByte(i.Color[0]), clampByte(i.Color[1]), clampByte(i.Color[2])}}
		touched = true
	}
	if i.Effect != "" {
		id, _ := EffectID(i.Effect)
		seg.Effect = wled.Int(id)
		touched = true
	}
	if i.Speed != nil {
		seg.Speed = wled.Int(clampByte(*i.Speed))
		touched = true
	}
	if i.Intensity != nil {
		seg.Intensity = wled.Int(clampByte(*i.Intensity))
		touched = true
	}
	if touched {
		s.Segments = []wled.Segment{seg}
	}
	return s
}

func clampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
