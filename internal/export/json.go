package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/postcode-cli/internal/model"
)

// EncodeJSON writes records as a single compact JSON array. Absent optional
// fields are null.
func EncodeJSON(w io.Writer, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	if err := json.NewEncoder(w).Encode(records); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}
