// Package catalog loads the session's scene and trigger definitions and
// resolves the music sources they reference.
//
// A catalog file is YAML:
//
//	scenes:
//	  - id: tavern
//	    name: The Prancing Pony
//	    audio:
//	      music: playlist:tavern
//	      ambient: [ambient/crowd.mp3, ambient/fireplace.ogg]
//	    lighting:
//	      wled: {brightness: 128, color: [255, 140, 60], effect: candle}
//	      home_assistant: "set the hallway lamp to orange"
//	triggers:
//	  - id: lightning
//	    name: Lightning Strike
//	    sequence:
//	      - lighting: {wled: {brightness: 255, color: [255, 255, 255], duration: 100}}
//	      - delay: 1500
//	        audio: {trigger: sfx/thunder.mp3}
//	      - delay: 1500
//	        lighting: {wled: {restore: true}}
//
// The package also indexes the music library (category/collection/track)
// for the control panel, and parses playlist files.
package catalog
