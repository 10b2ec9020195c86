// Package manifest models the remote description of an audio module bundle
// and the module listing that indexes bundles on a server.
//
// A bundle declares the ordered binary assets that make up the unit, GUI
// metadata (including an untagged grid of parameter values), an optional GUI
// description asset and an engine information block:
//
//	{
//	  "wasm_url": ["/units/gain.wasm"],
//	  "gui": {"url": "gain.html", "name": "Gain", "params": [[0, "gain", 0.5]], "width": 200, "height": 100},
//	  "gui_description": "gain_gui.json",
//	  "info": {"name": "Gain", "vendor": "aa", "inputs": 1, "outputs": 1, ...}
//	}
//
// Bundles are parsed once during module construction and discarded after the
// engine is built.
package manifest
