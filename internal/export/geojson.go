package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/postcode-cli/internal/model"
)

// EncodeGeoJSON writes records as a FeatureCollection. Geocoded records get
// a WGS84 Point geometry; the rest have a null geometry. All record fields
// except the coordinates become feature properties.
func EncodeGeoJSON(w io.Writer, records []model.Record) error {
	fc := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(records)),
	}

	for _, r := range records {
		f := &geojson.Feature{
			ID: r.ID.String(),
			Properties: map[string]any{
				"houseName":  r.HouseName,
				"houseAlpha": r.HouseAlpha,
				"houseNo":    r.HouseNo,
				"flatNo":     r.FlatNo,
				"street":     r.Street,
				"postCode":   r.PostCode,
				"locality":   r.Locality,
				"country":    r.Country,
			},
		}
		if r.Latitude != nil && r.Longitude != nil {
			f.Geometry = geom.NewPointFlat(geom.XY, []float64{*r.Longitude, *r.Latitude}).SetSRID(4326)
		}
		fc.Features = append(fc.Features, f)
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}
