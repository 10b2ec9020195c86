package manifest

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/wippyai/aa-wasm/errors"
)

// GUI describes how a host should present the unit.
type GUI struct {
	URL    string    `json:"url"`
	Name   string    `json:"name"`
	Params [][]Value `json:"params"`
	Width  int32     `json:"width"`
	Height int32     `json:"height"`
}

// Info is the engine information block of a bundle.
type Info struct {
	Name              string `json:"name"`
	Vendor            string `json:"vendor"`
	Category          string `json:"category"`
	Presets           uint32 `json:"presets"`
	Parameters        uint32 `json:"parameters"`
	Inputs            int32  `json:"inputs"`
	Outputs           int32  `json:"outputs"`
	MidiInputs        uint32 `json:"midi_inputs"`
	MidiOutputs       uint32 `json:"midi_outputs"`
	ID                uint32 `json:"id"`
	Version           uint32 `json:"version"`
	InitialDelay      uint32 `json:"initial_delay"`
	PresetChunks      bool   `json:"preset_chunks"`
	F64Precision      bool   `json:"f64_precision"`
	SilentWhenStopped bool   `json:"silent_when_stopped"`
}

// Bundle is the resolved description of one audio module. It is read-only
// once parsed.
type Bundle struct {
	GUIDescription *string  `json:"gui_description"`
	WasmURLs       []string `json:"wasm_url"`
	GUI            GUI      `json:"gui"`
	Info           Info     `json:"info"`
}

// rawBundle defers decoding of the nested blocks so that absent required
// fields can be told apart from zero values.
type rawBundle struct {
	GUIDescription *string         `json:"gui_description"`
	WasmURLs       *[]string       `json:"wasm_url"`
	GUI            json.RawMessage `json:"gui"`
	Info           json.RawMessage `json:"info"`
}

// Parse decodes a bundle manifest. The wasm_url, gui and info blocks are
// required; gui_description is optional.
func Parse(data []byte) (*Bundle, error) {
	var raw rawBundle
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.ParseFailed("bundle manifest", err)
	}

	switch {
	case raw.WasmURLs == nil:
		return nil, errors.FieldMissing(errors.PhaseParse, nil, "wasm_url")
	case raw.GUI == nil:
		return nil, errors.FieldMissing(errors.PhaseParse, nil, "gui")
	case raw.Info == nil:
		return nil, errors.FieldMissing(errors.PhaseParse, nil, "info")
	}
	if err := requireKeys("gui", raw.GUI, guiKeys); err != nil {
		return nil, err
	}
	if err := requireKeys("info", raw.Info, infoKeys); err != nil {
		return nil, err
	}

	b := &Bundle{WasmURLs: *raw.WasmURLs}
	if err := json.Unmarshal(raw.GUI, &b.GUI); err != nil {
		return nil, errors.ParseFailed("gui", err)
	}
	if err := json.Unmarshal(raw.Info, &b.Info); err != nil {
		return nil, errors.ParseFailed("info", err)
	}

	for i, u := range *raw.WasmURLs {
		if strings.TrimSpace(u) == "" {
			return nil, errors.New(errors.PhaseParse, errors.KindInvalidData).
				Path("wasm_url", strconv.Itoa(i)).
				Detail("empty binary asset path").
				Build()
		}
	}

	if raw.GUIDescription != nil && *raw.GUIDescription != "" {
		b.GUIDescription = raw.GUIDescription
	}
	return b, nil
}

// ParseString is Parse for UTF-8 text.
func ParseString(text string) (*Bundle, error) {
	return Parse([]byte(text))
}

// HasGUIDescription reports whether the bundle declares a GUI description asset.
func (b *Bundle) HasGUIDescription() bool {
	return b.GUIDescription != nil
}

// Entry is one item of a module listing.
type Entry struct {
	Name    string `json:"name"`
	JSONURL string `json:"json_url"`
}

// Listing is the top-level module index served next to the bundles.
type Listing struct {
	Default string  `json:"default"`
	Modules []Entry `json:"modules"`
}

// ParseListing decodes a module listing document. Both default and modules
// are required.
func ParseListing(data []byte) (*Listing, error) {
	var l Listing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, errors.ParseFailed("module listing", err)
	}
	if err := requireKeys("module listing", data, listingKeys); err != nil {
		return nil, err
	}
	if l.Modules == nil {
		return nil, errors.FieldMissing(errors.PhaseParse, nil, "modules")
	}
	return &l, nil
}

// Find returns the entry named name.
func (l *Listing) Find(name string) (Entry, bool) {
	for _, e := range l.Modules {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Resolve joins an asset path onto base. Absolute URLs are returned as is;
// relative paths are appended to base with exactly one separating slash.
func Resolve(base, ref string) string {
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		return ref
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(ref, "/")
}

var (
	listingKeys = []string{"default", "modules"}
	guiKeys     = []string{"url", "name", "params", "width", "height"}
	infoKeys    = []string{
		"name", "vendor", "presets", "parameters", "inputs", "outputs",
		"midi_inputs", "midi_outputs", "id", "version", "category",
		"initial_delay", "preset_chunks", "f64_precision", "silent_when_stopped",
	}
)

// requireKeys checks that every key is present in the JSON object block.
func requireKeys(block string, data json.RawMessage, keys []string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return errors.ParseFailed(block, err)
	}
	for _, k := range keys {
		if _, ok := fields[k]; !ok {
			return errors.FieldMissing(errors.PhaseParse, []string{block}, k)
		}
	}
	return nil
}
