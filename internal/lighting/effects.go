package lighting

import (
	"sort"
	"strings"
)

// EffectSolid is the effect used whenever a name is unknown or omitted.
const EffectSolid = "solid"

// effects maps the effect names used in scene files to WLED effect IDs
// (FX_MODE_* indices of the stock firmware).
var effects = map[string]int{
	"solid":        0,
	"blink":        1,
	"breathe":      2,
	"wipe":         3,
	"colorloop":    8,
	"rainbow":      9,
	"fade":         12,
	"twinkle":      17,
	"sparkle":      20,
	"strobe":       23,
	"chase":        28,
	"aurora":       38,
	"lighthouse":   41,
	"fireworks":    42,
	"rain":         43,
	"fire_flicker": 45,
	"gradient":     46,
	"lightning":    57,
	"fire":         66,
	"candle":       88,
	"pacifica":     101,
}

// EffectID resolves an effect name (case-insensitive). Unknown names map to
// solid and report false.
func EffectID(name string) (int, bool) {
	id, ok := effects[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return effects[EffectSolid], false
	}
	return id, true
}

// EffectNames returns the known effect names, sorted.
func EffectNames() []string {
	names := make([]string, 0, len(effects))
	for n := range effects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
