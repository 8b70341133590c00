// Package audio mixes the table's sound: one music channel, any number of
// looping ambient layers and overlapping one-shot trigger sounds.
//
// Architecture:
//
//	┌─────────────────────────────────────────────────────┐
//	│                   Mixer (mixer.go)                   │
//	│  music    ── single file (native loop) or ordered    │
//	│              list with wraparound and shuffle        │
//	│  ambient  ── looping layers, replaced as a group     │
//	│  trigger  ── one-shots, untracked on natural end     │
//	│  volumes  ── per category × per-file multiplier      │
//	└─────────────────────────────────────────────────────┘
//	                          │
//	                          ▼
//	             Backend.Open(path, loop) → Element
//	         EbitenBackend (mp3, ogg, wav) · NullBackend
//
// Every stop fades linearly to silence over the configured duration, then
// pauses, rewinds and releases the element with its pre-fade volume restored.
// Elements are detached under the mixer lock before fading starts, so sounds
// started during a fade are never affected by it.
//
// # Usage
//
//	backend := audio.NewEbitenBackend(44100)
//	mixer := audio.NewMixer(backend, audio.Options{
//	    Volumes: map[audio.Category]float64{audio.CategoryMusic: 0.5},
//	    Fade:    time.Second,
//	    Root:    "./music",
//	})
//	mixer.PlayMusic(ctx, audio.Source{Tracks: []string{"tavern/jig.mp3"}}, true, false)
//	mixer.PlayTrigger("sfx/door.mp3")
package audio
