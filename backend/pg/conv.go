package pg

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vstorage-dev/vstorage/storagetime"
)

// bindColumn converts a JSON-decoded value (as produced when a record is
// round-tripped through encoding/json) into the Go type pgx should bind for
// colType, directed by the storable column-type closed set.
func bindColumn(colType string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch colType {
	case "bigint":
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("pg: expected numeric value for bigint column, got %T", v)
		}
		return int64(f), nil
	case "integer":
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("pg: expected numeric value for integer column, got %T", v)
		}
		return int32(f), nil
	case "boolean":
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("pg: expected bool value for boolean column, got %T", v)
		}
		return b, nil
	case "datetime":
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("pg: expected string value for datetime column, got %T", v)
		}
		dt, err := storagetime.Parse(s)
		if err != nil {
			return nil, err
		}
		return dt.Time(), nil
	case "json":
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("pg: marshal json column: %w", err)
		}
		return raw, nil
	default: // text
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("pg: expected string value for text column, got %T", v)
		}
		return s, nil
	}
}

// scanColumn converts a value pgx produced for colType back into a
// JSON-compatible value (string, float64, bool, decoded JSON, or nil), matching what
// encoding/json would decode from the record's own serialization. A null
// cell is omitted entirely by the caller, not represented here.
func scanColumn(colType string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch colType {
	case "bigint", "integer":
		switch n := v.(type) {
		case int64:
			return float64(n), nil
		case int32:
			return float64(n), nil
		case int:
			return float64(n), nil
		default:
			return nil, fmt.Errorf("pg: unexpected numeric scan type %T", v)
		}
	case "boolean":
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("pg: unexpected boolean scan type %T", v)
		}
		return b, nil
	case "datetime":
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("pg: unexpected datetime scan type %T", v)
		}
		return storagetime.FromTime(t).String(), nil
	case "json":
		raw, ok := v.([]byte)
		if !ok {
			// pgx decodes json/jsonb cells itself, so v is already a
			// JSON-compatible value.
			return v, nil
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("pg: decode json column: %w", err)
		}
		return decoded, nil
	default: // text
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("pg: unexpected text scan type %T", v)
		}
		return s, nil
	}
}
