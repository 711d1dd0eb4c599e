package mapview

import (
	"encoding/json"
	"net/url"

	"github.com/systragroup/SG-DataDashboard/engine/study"
)

// StudyLink is the page of a study.
func StudyLink(id string) string {
	return "/study/" + url.PathEscape(id)
}

// Dashboard shows the visible studies with their outlines.
func Dashboard(opts Options, studies []*study.Study, outlines map[string]*study.LayerRecord) *Map {
	m := New(opts)
	for _, s := range studies {
		if !s.Visible {
			continue
		}
		m.AddMarker(Marker{Lat: s.Lat, Lon: s.Lon, Tooltip: s.Name, Color: ColorBlue, Link: StudyLink(s.ID)})
		if rec, ok := outlines[s.ID]; ok && rec != nil {
			m.AddOverlay(Overlay{Name: s.Name, Data: rec.GeoJSON, Color: ColorBlue, FillOpacity: 0.1})
			extendRecord(m, rec)
		}
	}
	return m.FitMarkers()
}

// Manager shows every study, visible or not.
func Manager(opts Options, studies []*study.Study) *Map {
	m := New(opts)
	for _, s := range studies {
		m.AddMarker(Marker{Lat: s.Lat, Lon: s.Lon, Tooltip: s.Name, Color: ColorRed, Link: StudyLink(s.ID)})
	}
	return m.FitMarkers()
}

// Study shows one study with its outline, clean zones in green and unclean
// zones in grey.
func Study(opts Options, s *study.Study, outline *study.LayerRecord, zones []study.StoredZone) *Map {
	m := New(opts)
	m.Center = center{Lat: s.Lat, Lon: s.Lon}
	m.AddMarker(Marker{Lat: s.Lat, Lon: s.Lon, Tooltip: s.Name, Color: ColorRed})
	if outline != nil {
		m.AddOverlay(Overlay{Name: "outline", Data: outline.GeoJSON, Color: ColorBlue, FillOpacity: 0.05, Weight: 3})
		extendRecord(m, outline)
	}
	var clean, unclean []study.StoredZone
	for _, z := range zones {
		if z.Clean {
			clean = append(clean, z)
		} else {
			unclean = append(unclean, z)
		}
	}
	if len(clean) > 0 {
		m.AddOverlay(Overlay{Name: "zones", Data: ZonesFeatureCollection(clean), Color: ColorGreen,
			FillOpacity: 0.2, Weight: 1, TooltipProperty: "label"})
	}
	if len(unclean) > 0 {
		m.AddOverlay(Overlay{Name: "unclean", Data: ZonesFeatureCollection(unclean), Color: ColorGrey,
			FillOpacity: 0.3, Weight: 1, TooltipProperty: "label"})
	}
	return m.FitMarkers()
}

func extendRecord(m *Map, rec *study.LayerRecord) {
	if b := rec.Bounds; b != nil {
		m.Extend(b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
	}
}

type zoneFeature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties zoneProperties  `json:"properties"`
}

type zoneProperties struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
	Label  string `json:"label"`
}

// ZonesFeatureCollection turns stored zones into a GeoJSON document. Zones
// without geometry are left out.
func ZonesFeatureCollection(zones []study.StoredZone) json.RawMessage {
	fc := struct {
		Type     string        `json:"type"`
		Features []zoneFeature `json:"features"`
	}{Type: "FeatureCollection", Features: []zoneFeature{}}
	for _, z := range zones {
		if len(z.Geometry) == 0 || string(z.Geometry) == "null" {
			continue
		}
		label := z.ZoneID + " " + z.Name
		if z.Reason != "" {
			label += " (" + z.Reason + ")"
		}
		fc.Features = append(fc.Features, zoneFeature{
			Type:       "Feature",
			Geometry:   z.Geometry,
			Properties: zoneProperties{ID: z.ZoneID, Name: z.Name, Reason: z.Reason, Label: label},
		})
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return nil
	}
	return data
}
