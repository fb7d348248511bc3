package repository

import (
	"encoding/json"
	"fmt"

	"github.com/vstorage-dev/vstorage/storable"
	"github.com/vstorage-dev/vstorage/vserr"
)

// recordToRow serializes v to JSON and reshapes it into a column-keyed map
// a backend can bind, using d's column<->jsonKey correspondence.
func recordToRow(v any, d *storable.Descriptor) (map[string]any, error) {
	payload, err := storable.CanonicalJSON(v)
	if err != nil {
		return nil, vserr.SerializationError("repository: serialize record", err)
	}
	var asMap map[string]any
	if err := json.Unmarshal(payload, &asMap); err != nil {
		return nil, vserr.SerializationError("repository: decode record as map", err)
	}

	row := make(map[string]any, len(d.Columns))
	for i, column := range d.Columns {
		key := d.JSONKeys[i]
		row[column] = asMap[key]
	}
	return row, nil
}

// rowToRecord reshapes a column-keyed row from a backend back into JSON
// keyed the way T's struct tags expect, then unmarshals into a new *T.
func rowToRecord[T any](row map[string]any, d *storable.Descriptor) (*T, error) {
	asMap := make(map[string]any, len(d.Columns))
	for i, column := range d.Columns {
		key := d.JSONKeys[i]
		if val, ok := row[column]; ok {
			asMap[key] = val
		}
	}
	payload, err := json.Marshal(asMap)
	if err != nil {
		return nil, vserr.SerializationError("repository: encode row as json", err)
	}
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, vserr.SerializationError(fmt.Sprintf("repository: decode row into %T", out), err)
	}
	return &out, nil
}
