package model

// GeocodeResult is an optional coordinate pair. Both fields are nil when the
// address could not be (or was not) geocoded.
type GeocodeResult struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// NewGeocodeResult returns a result holding the given coordinates.
func NewGeocodeResult(lat, lon float64) GeocodeResult {
	return GeocodeResult{Latitude: &lat, Longitude: &lon}
}

// Found reports whether both coordinates are present.
func (g GeocodeResult) Found() bool {
	return g.Latitude != nil && g.Longitude != nil
}

// Record is one aggregated output row: an address plus its coordinates.
// Absent optional fields encode as null (JSON) or an empty cell (CSV).
type Record struct {
	ID         ID       `json:"id" csv:"id"`
	HouseName  *string  `json:"houseName" csv:"houseName"`
	HouseAlpha *string  `json:"houseAlpha" csv:"houseAlpha"`
	HouseNo    *string  `json:"houseNo" csv:"houseNo"`
	FlatNo     *string  `json:"flatNo" csv:"flatNo"`
	Street     string   `json:"street" csv:"street"`
	PostCode   string   `json:"postCode" csv:"postCode"`
	Locality   string   `json:"locality" csv:"locality"`
	Country    string   `json:"country" csv:"country"`
	Latitude   *float64 `json:"latitude" csv:"latitude"`
	Longitude  *float64 `json:"longitude" csv:"longitude"`
}

// NewRecord merges an address with its geocode result.
func NewRecord(addr Address, geo GeocodeResult) Record {
	return Record{
		ID:         addr.ID,
		HouseName:  addr.HouseName,
		HouseAlpha: addr.HouseAlpha,
		HouseNo:    addr.HouseNo,
		FlatNo:     addr.FlatNo,
		Street:     addr.Street,
		PostCode:   addr.PostCode,
		Locality:   addr.Locality,
		Country:    addr.Country,
		Latitude:   geo.Latitude,
		Longitude:  geo.Longitude,
	}
}

// Columns lists the record fields in output order.
var Columns = []string{
	"id", "houseName", "houseAlpha", "houseNo", "flatNo",
	"street", "postCode", "locality", "country", "latitude", "longitude",
}
