package fetcher

import (
	"encoding/json"
	"io"
	"reflect"

	"github.com/rotisserie/eris"
)

// decodeInto decodes a single JSON document from r into target, which must
// be a non-nil pointer. target is only replaced when decoding succeeds, so a
// failed attempt never leaves partial data behind.
func decodeInto(r io.Reader, target any) error {
	rv := reflect.ValueOf(target)
	fresh := reflect.New(rv.Elem().Type())
	if err := json.NewDecoder(r).Decode(fresh.Interface()); err != nil {
		return eris.Wrap(err, "fetcher: decode json")
	}
	rv.Elem().Set(fresh.Elem())
	return nil
}
