// Package mapview builds Leaflet maps of studies and renders them as
// self-contained HTML fragments.
package mapview

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/google/uuid"
)

// Marker colours.
const (
	ColorRed   = "#d7263d"
	ColorBlue  = "#1f6feb"
	ColorGreen = "#2da44e"
	ColorGrey  = "#6e7781"
)

// Options hold the defaults shared by every map.
type Options struct {
	TilesURL       string
	Attribution    string
	LeafletVersion string
	CenterLat      float64
	CenterLon      float64
	Zoom           int
	Height         string
}

// Marker is a point with a tooltip and an optional link.
type Marker struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Tooltip string  `json:"tooltip,omitempty"`
	Color   string  `json:"color"`
	Link    string  `json:"link,omitempty"`
}

// Overlay is a GeoJSON layer drawn with one style. TooltipProperty names the
// feature property shown on hover.
type Overlay struct {
	Name            string          `json:"name"`
	Data            json.RawMessage `json:"data"`
	Color           string          `json:"color"`
	Weight          float64         `json:"weight"`
	FillOpacity     float64         `json:"fill_opacity"`
	TooltipProperty string          `json:"tooltip,omitempty"`
}

type tiles struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

type center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Map is the description handed to the browser.
type Map struct {
	ID         string         `json:"id"`
	Center     center         `json:"center"`
	Zoom       int            `json:"zoom"`
	Tiles      tiles          `json:"tiles"`
	Markers    []Marker       `json:"markers"`
	Overlays   []Overlay      `json:"overlays"`
	Bounds     *[2][2]float64 `json:"bounds,omitempty"`
	LeafletJS  string         `json:"leaflet_js"`
	LeafletCSS string         `json:"leaflet_css"`

	height string
}

// New returns an empty map centred on the configured default.
func New(opts Options) *Map {
	version := opts.LeafletVersion
	if version == "" {
		version = "1.9.4"
	}
	height := opts.Height
	if height == "" {
		height = "480px"
	}
	return &Map{
		ID:         "map-" + uuid.NewString(),
		Center:     center{Lat: opts.CenterLat, Lon: opts.CenterLon},
		Zoom:       opts.Zoom,
		Tiles:      tiles{URL: opts.TilesURL, Attribution: opts.Attribution},
		Markers:    []Marker{},
		Overlays:   []Overlay{},
		LeafletJS:  fmt.Sprintf("https://unpkg.com/leaflet@%s/dist/leaflet.js", version),
		LeafletCSS: fmt.Sprintf("https://unpkg.com/leaflet@%s/dist/leaflet.css", version),
		height:     height,
	}
}

// AddMarker places a marker at lat, lon.
func (m *Map) AddMarker(mk Marker) *Map {
	m.Markers = append(m.Markers, mk)
	return m
}

// AddOverlay draws a GeoJSON document. Empty documents are skipped.
func (m *Map) AddOverlay(o Overlay) *Map {
	if len(o.Data) == 0 || string(o.Data) == "null" {
		return m
	}
	if o.Weight == 0 {
		o.Weight = 2
	}
	m.Overlays = append(m.Overlays, o)
	return m
}

// Extend grows the fitted area to include the given extent.
func (m *Map) Extend(minLat, minLon, maxLat, maxLon float64) *Map {
	if m.Bounds == nil {
		m.Bounds = &[2][2]float64{{minLat, minLon}, {maxLat, maxLon}}
		return m
	}
	b := m.Bounds
	b[0][0], b[0][1] = min(b[0][0], minLat), min(b[0][1], minLon)
	b[1][0], b[1][1] = max(b[1][0], maxLat), max(b[1][1], maxLon)
	return m
}

// FitMarkers extends the fitted area to every marker.
func (m *Map) FitMarkers() *Map {
	for _, mk := range m.Markers {
		m.Extend(mk.Lat, mk.Lon, mk.Lat, mk.Lon)
	}
	return m
}

//go:embed fragment.html.tmpl
var fragmentSource string

var fragmentTmpl = template.Must(template.New("fragment").Parse(fragmentSource))

// Render returns the HTML fragment drawing the map.
func (m *Map) Render() (template.HTML, error) {
	var buf bytes.Buffer
	data := struct {
		ID     string
		Height string
		Map    *Map
	}{ID: m.ID, Height: m.height, Map: m}
	if err := fragmentTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render map: %w", err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec // escaped by html/template
}
