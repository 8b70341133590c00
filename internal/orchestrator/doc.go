// Package orchestrator runs a tabletop session: it holds the single active
// ambient scene and executes trigger sequences concurrently with it.
//
// Architecture:
//
//	┌────────────────────────────────────────────────────────┐
//	│                  Manager (manager.go)                   │
//	│                                                        │
//	│  scene slot ── StartScene / StopScene / StopAll         │
//	│     transition mutex: stop old (ambient ‖ lights)       │
//	│     then start new (ambient, WLED intent, hub commands) │
//	│                                                        │
//	│  triggers ── ExecuteTrigger                             │
//	│     1. fade out trigger sounds (audio is exclusive)     │
//	│     2. AdaptTrigger (adapt.go) to the active scene      │
//	│     3. goroutine: save lights, run events, restore      │
//	└────────────────────────────────────────────────────────┘
//	        │                 │                  │
//	        ▼                 ▼                  ▼
//	    audio.Mixer    lighting.Adapter    Publisher / Repository
//	                                       (events, session history)
//
// After every trigger sequence the lights return to the active scene's
// lighting, or turn off when no scene is active. A StopScene that lands
// while a sequence is in flight therefore ends with the lights off.
//
// # Thread Safety
//
// Manager is safe for concurrent use. Scene transitions are serialised;
// trigger sequences are not ordered relative to each other.
//
// # Usage
//
//	mgr := orchestrator.NewManager(cat, mixer, adapter, orchestrator.Options{
//	    Transition: time.Second,
//	    Publisher:  fanout,
//	    History:    orchestrator.NewSQLiteRepository(db.DB),
//	})
//	mgr.SetLogger(log.With("component", "orchestrator"))
//
//	_ = mgr.StartScene(ctx, "tavern")
//	execID, err := mgr.ExecuteTrigger(ctx, "lightning")
package orchestrator
