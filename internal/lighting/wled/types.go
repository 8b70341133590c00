package wled

// TransitionMax is the largest transition WLED accepts, in 100 ms units.
const TransitionMax = 65535

// State is the subset of the WLED /json/state object written by Tavernlight.
// Nil fields are omitted from the payload so the controller keeps its
// current value for them.
type State struct {
	On         *bool     `json:"on,omitempty"`
	Brightness *int      `json:"bri,omitempty"`
	Transition *int      `json:"transition,omitempty"`
	LiveLock   *int      `json:"lor,omitempty"`
	Segments   []Segment `json:"seg,omitempty"`
}

// Segment addresses the first (main) segment of the strip.
type Segment struct {
	Colors    [][3]int `json:"col,omitempty"`
	Effect    *int     `json:"fx,omitempty"`
	Speed     *int     `json:"sx,omitempty"`
	Intensity *int     `json:"ix,omitempty"`
}

// Info is the subset of /json/info used for reachability reporting.
type Info struct {
	Name    string `json:"name"`
	Version string `json:"ver"`
	LEDs    struct {
		Count int `json:"count"`
	} `json:"leds"`
	Live bool `json:"live"`
}

// Bool returns a pointer to v, for building State literals.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v, for building State literals.
func Int(v int) *int { return &v }

// TransitionUnits converts milliseconds to WLED transition units (100 ms),
// clamped to [0, TransitionMax].
func TransitionUnits(ms int) int {
	units := ms / 100
	if units < 0 {
		return 0
	}
	if units > TransitionMax {
		return TransitionMax
	}
	return units
}
