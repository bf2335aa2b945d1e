package geo

// Minimal GeoJSON (RFC 7946) types for point layers.

const (
	TypeFeatureCollection = "FeatureCollection"
	TypeFeature           = "Feature"
	TypePoint             = "Point"
)

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string     `json:"type"`
	Features []*Feature `json:"features"`
}

// Feature is a GeoJSON feature with a point geometry.
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id,omitempty"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry is a GeoJSON point. Coordinates are [longitude, latitude].
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// NewFeatureCollection returns an empty collection that encodes features as [] rather than null.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{Type: TypeFeatureCollection, Features: []*Feature{}}
}

// NewPointFeature builds a point feature at p.
func NewPointFeature(id string, p Point, props map[string]any) *Feature {
	if props == nil {
		props = map[string]any{}
	}
	return &Feature{
		Type:       TypeFeature,
		ID:         id,
		Geometry:   Geometry{Type: TypePoint, Coordinates: [2]float64{p.Lng, p.Lat}},
		Properties: props,
	}
}

// Add appends f to the collection.
func (fc *FeatureCollection) Add(f *Feature) {
	fc.Features = append(fc.Features, f)
}
