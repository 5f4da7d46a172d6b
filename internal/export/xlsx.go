package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/postcode-cli/internal/model"
)

const sheetName = "addresses"

// EncodeXLSX writes records to a single-sheet workbook with a header row.
// Coordinates are numeric cells; absent values are left blank.
func EncodeXLSX(w io.Writer, records []model.Record) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range model.Columns {
		header.AddCell().SetString(col)
	}

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.ID.String())
		addOptionalString(row, r.HouseName)
		addOptionalString(row, r.HouseAlpha)
		addOptionalString(row, r.HouseNo)
		addOptionalString(row, r.FlatNo)
		row.AddCell().SetString(r.Street)
		row.AddCell().SetString(r.PostCode)
		row.AddCell().SetString(r.Locality)
		row.AddCell().SetString(r.Country)
		addOptionalFloat(row, r.Latitude)
		addOptionalFloat(row, r.Longitude)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}

func addOptionalString(row *xlsx.Row, s *string) {
	cell := row.AddCell()
	if s != nil {
		cell.SetString(*s)
	}
}

func addOptionalFloat(row *xlsx.Row, f *float64) {
	cell := row.AddCell()
	if f != nil {
		cell.SetFloat(*f)
	}
}
