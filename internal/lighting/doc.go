// Package lighting drives the table's remote lighting: a WLED LED controller
// and, optionally, a Home Assistant hub reached through its conversation bridge.
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────┐
//	│                 Adapter (adapter.go)                  │
//	│  Intent ──BuildState──▶ wled.State ──▶ WLEDClient     │
//	│  hub text commands ─────────────────▶ HubClient       │
//	│  SaveState / RestoreState (raw /json/state snapshot)  │
//	│  Connectivity flags + request counters                │
//	└──────────────────────────────────────────────────────┘
//	           │                              │
//	           ▼                              ▼
//	    wled.Client (HTTP)        homeassistant.Client (HTTP)
//
// Every call is best-effort: one attempt, no retry, failures logged and
// counted. Callers never see device errors.
//
// # Usage
//
//	adapter := lighting.NewAdapter(wled.NewClient(url), nil, lighting.Options{OverrideLive: true})
//	adapter.SetLogger(log.With("component", "lighting"))
//	adapter.Initialize(ctx)
//	adapter.ApplyIntent(ctx, &lighting.Intent{Color: lighting.Color(255, 120, 0), Effect: "candle"})
package lighting
