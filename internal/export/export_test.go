package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/postcode-cli/internal/model"
)

func strPtr(s string) *string { return &s }

func sampleRecords() []model.Record {
	return []model.Record{
		model.NewRecord(model.Address{
			ID:        "100",
			HouseName: strPtr("Villa Rosa"),
			HouseNo:   strPtr("5"),
			Street:    "Main",
			PostCode:  "X1",
			Locality:  "A",
			Country:   "M",
		}, model.NewGeocodeResult(35.5, 14.25)),
		model.NewRecord(model.Address{
			ID:         "101",
			HouseAlpha: strPtr("B"),
			FlatNo:     strPtr("3"),
			Street:     "Main, Upper",
			PostCode:   "X1",
			Locality:   "A",
			Country:    "M",
		}, model.GeocodeResult{}),
	}
}

func TestEncodeJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, sampleRecords()))

	want := `[
		{"id":100,"houseName":"Villa Rosa","houseAlpha":null,"houseNo":"5","flatNo":null,
		 "street":"Main","postCode":"X1","locality":"A","country":"M","latitude":35.5,"longitude":14.25},
		{"id":101,"houseName":null,"houseAlpha":"B","houseNo":null,"flatNo":"3",
		 "street":"Main, Upper","postCode":"X1","locality":"A","country":"M","latitude":null,"longitude":null}
	]`
	assert.JSONEq(t, want, buf.String())
}

func TestEncodeJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestEncodeCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, sampleRecords()))

	out := buf.Bytes()
	require.True(t, bytes.HasPrefix(out, []byte("\xef\xbb\xbf")), "missing byte order mark")

	want := "id,houseName,houseAlpha,houseNo,flatNo,street,postCode,locality,country,latitude,longitude\n" +
		"100,Villa Rosa,,5,,Main,X1,A,M,35.5,14.25\n" +
		"101,,B,,3,\"Main, Upper\",X1,A,M,,\n"
	assert.Equal(t, want, string(out[3:]))
}

func TestEncodeCSV_CoordinatesMatchJSON(t *testing.T) {
	records := []model.Record{
		model.NewRecord(model.Address{ID: "7", Street: "Main"}, model.NewGeocodeResult(35.8989123456789, 0.00001)),
	}

	var csvBuf, jsonBuf bytes.Buffer
	require.NoError(t, EncodeCSV(&csvBuf, records))
	require.NoError(t, EncodeJSON(&jsonBuf, records))

	assert.Contains(t, csvBuf.String(), ",35.8989123456789,0.00001\n")
	assert.NotContains(t, csvBuf.String(), "E-05")

	var decoded []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "0.00001", string(decoded[0]["longitude"]))
	assert.Equal(t, "35.8989123456789", string(decoded[0]["latitude"]))
}

func TestEncodeCSV_StringIDKeepsBareText(t *testing.T) {
	var addr model.Address
	require.NoError(t, json.Unmarshal([]byte(`{"id":"12","street":"Main"}`), &addr))

	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, []model.Record{model.NewRecord(addr, model.GeocodeResult{})}))
	assert.Contains(t, buf.String(), "\n12,,,,,Main,,,,,\n")
}

func TestEncodeCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, nil))
	assert.Equal(t,
		"\ufeffid,houseName,houseAlpha,houseNo,flatNo,street,postCode,locality,country,latitude,longitude\n",
		buf.String())
}

func TestEncodeXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeXLSX(&buf, sampleRecords()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "addresses", sheet.Name)
	require.Len(t, sheet.Rows, 3)

	header := sheet.Rows[0].Cells
	require.Len(t, header, len(model.Columns))
	for i, col := range model.Columns {
		assert.Equal(t, col, header[i].String())
	}

	first := sheet.Rows[1].Cells
	assert.Equal(t, "100", first[0].String())
	assert.Equal(t, "Villa Rosa", first[1].String())
	assert.Equal(t, "", first[2].String())
	lat, err := first[9].Float()
	require.NoError(t, err)
	assert.InDelta(t, 35.5, lat, 0.0001)

	second := sheet.Rows[2].Cells
	assert.Equal(t, "Main, Upper", second[5].String())
}

func TestEncodeGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeGeoJSON(&buf, sampleRecords()))

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			ID       string `json:"id"`
			Geometry *struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)

	first := doc.Features[0]
	assert.Equal(t, "Feature", first.Type)
	assert.Equal(t, "100", first.ID)
	require.NotNil(t, first.Geometry)
	assert.Equal(t, "Point", first.Geometry.Type)
	assert.Equal(t, []float64{14.25, 35.5}, first.Geometry.Coordinates)
	assert.Equal(t, "Villa Rosa", first.Properties["houseName"])
	assert.Nil(t, first.Properties["houseAlpha"])
	assert.NotContains(t, first.Properties, "latitude")

	second := doc.Features[1]
	assert.Nil(t, second.Geometry)
	assert.Equal(t, "Main, Upper", second.Properties["street"])
}

func TestEncodeGeoJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeGeoJSON(&buf, nil))
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, buf.String())
}

func TestFileName(t *testing.T) {
	name, err := FileName("json")
	require.NoError(t, err)
	assert.Equal(t, "data.json", name)

	name, err = FileName("csv")
	require.NoError(t, err)
	assert.Equal(t, "data.csv", name)

	_, err = FileName("parquet")
	assert.Error(t, err)
}

func TestFormats(t *testing.T) {
	assert.Equal(t, []string{"csv", "geojson", "json", "xlsx"}, Formats())
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := WriteFiles(dir, []string{"json", "csv", "xlsx", "geojson"}, sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "data.json"),
		filepath.Join(dir, "data.csv"),
		filepath.Join(dir, "data.xlsx"),
		filepath.Join(dir, "data.geojson"),
	}, paths)

	for _, p := range paths {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 4, "no temp files left behind")
}

func TestWriteFiles_UnknownFormat(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteFiles(dir, []string{"json", "parquet"}, sampleRecords())
	require.Error(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "data.json")}, paths)
}

func TestWriteFileAtomic_FailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

	err := writeFileAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("encode failed")
	})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
