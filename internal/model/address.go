package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ID identifies an upstream directory entity. The directory service may send
// ids as JSON numbers or strings, and an ID writes back the same JSON type it
// was read with. The underlying value is the bare text, except for string ids
// that would read as another JSON value (such as "12"), which keep their
// quotes.
type ID string

// UnmarshalJSON accepts a JSON number, a JSON string, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: decode id")
		}
		if !json.Valid([]byte(s)) {
			*id = ID(s)
			return nil
		}
		quoted, err := json.Marshal(s)
		if err != nil {
			return eris.Wrap(err, "model: decode id")
		}
		*id = ID(quoted)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return eris.Wrap(err, "model: decode id")
	}
	*id = ID(data)
	return nil
}

// MarshalJSON writes number ids as JSON numbers and everything else as
// strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.quoted() || id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// MarshalText returns the bare id, as written to CSV cells.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// String returns the id as used in query parameters.
func (id ID) String() string {
	if id.quoted() {
		var s string
		if err := json.Unmarshal([]byte(id), &s); err == nil {
			return s
		}
	}
	return string(id)
}

func (id ID) quoted() bool {
	return len(id) >= 2 && id[0] == '"' && id[len(id)-1] == '"' && json.Valid([]byte(id))
}

func (id ID) numeric() bool {
	if id == "" {
		return false
	}
	c := id[0]
	if c != '-' && (c < '0' || c > '9') {
		return false
	}
	return json.Valid([]byte(id))
}

// Town is a top-level directory entry.
type Town struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Street belongs to a town.
type Street struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Address is a single postal address on a street.
type Address struct {
	ID         ID      `json:"id"`
	HouseName  *string `json:"houseName"`
	HouseNo    *string `json:"houseNo"`
	HouseAlpha *string `json:"houseAlpha"`
	FlatNo     *string `json:"flatNo"`
	Street     string  `json:"street"`
	PostCode   string  `json:"postCode"`
	Locality   string  `json:"locality"`
	Country    string  `json:"country"`
}

// geocodeKeySep joins the parts of a geocode key.
const geocodeKeySep = ", "

// GeocodeKey builds the free-text address used to look up coordinates.
// Empty parts are dropped; the house number falls back to the house alpha.
// Two addresses with the same key are treated as the same location.
func (a Address) GeocodeKey() string {
	house := deref(a.HouseNo)
	if house == "" {
		house = deref(a.HouseAlpha)
	}

	candidates := []string{deref(a.HouseName), house, a.Street, a.Locality, a.Country}
	parts := make([]string, 0, len(candidates))
	for _, p := range candidates {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, geocodeKeySep)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
