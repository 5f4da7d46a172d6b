package export

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sells-group/postcode-cli/internal/model"
)

// csvMarshalers writes floats the way encoding/json does, so coordinate
// cells match data.json.
var csvMarshalers = csvutil.MarshalFunc(func(f float64) ([]byte, error) {
	return json.Marshal(f)
})

// EncodeCSV writes a header row and one row per record, prefixed with a
// UTF-8 byte order mark so spreadsheet tools detect the encoding. Absent
// optional fields are empty cells.
func EncodeCSV(w io.Writer, records []model.Record) error {
	bom := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())

	cw := csv.NewWriter(bom)
	enc := csvutil.NewEncoder(cw)
	enc.WithMarshalers(csvMarshalers)
	if err := enc.EncodeHeader(model.Record{}); err != nil {
		return eris.Wrap(err, "export: encode csv header")
	}
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return eris.Wrapf(err, "export: encode csv row %d", i)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	if err := bom.Close(); err != nil {
		return eris.Wrap(err, "export: flush csv bom writer")
	}
	return nil
}
