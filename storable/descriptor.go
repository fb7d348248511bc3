package storable

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Descriptor is the static metadata a backend needs to persist and retrieve
// a storable type: table name, ordered column list, column types, JSON key
// correspondence, and precomputed SQL. All backends consult only this
// descriptor plus the record's JSON serialization — never reflection on the
// live object (spec.md §4.2).
type Descriptor struct {
	TableName      string
	Columns        []string
	ColumnTypes    []string
	JSONKeys       []string
	InsertSQL      string
	SelectAllSQL   string
	SelectByIDSQL  string
	IsVersionedRec bool

	// RoleJSONKeys holds the JSON keys of said/prefix/previous/version/
	// created_at fields, as opposed to the record's own domain fields.
	RoleJSONKeys map[string]bool

	idColumn string
}

// ColumnCount returns the number of storable columns.
func (d *Descriptor) ColumnCount() int { return len(d.Columns) }

// ID returns the SAID value for a record of the descriptor's type.
func (d *Descriptor) ID(v any) (string, error) {
	return GetSaid(v)
}

var (
	descMu    sync.RWMutex
	descCache = map[reflect.Type]*Descriptor{}
)

// Register declares T as a storable type bound to tableName, deriving its
// column list, types, and precomputed SQL from T's struct tags. It must run
// (typically from an init() in the package declaring T) before any
// repository or backend operation touches T. This is the runtime
// registration call spec.md §9's Design Notes sanctions as the Go
// equivalent of the original's compile-time derive macro.
func Register[T any](tableName string) error {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("storable: Register requires a struct type, got %s", t)
	}
	if tableName == "" {
		return fmt.Errorf("storable: Register requires a non-empty table name")
	}

	m, err := metaFor(t)
	if err != nil {
		return err
	}

	d := buildDescriptor(tableName, m)

	descMu.Lock()
	descCache[t] = d
	descMu.Unlock()
	return nil
}

func buildDescriptor(tableName string, m *recordMeta) *Descriptor {
	d := &Descriptor{TableName: tableName, IsVersionedRec: m.isVersioned(), RoleJSONKeys: map[string]bool{}}

	idColumn := "said"

	addRole := func(colIdx int, column, jsonKey, colType string) {
		d.Columns = append(d.Columns, column)
		d.ColumnTypes = append(d.ColumnTypes, colType)
		d.JSONKeys = append(d.JSONKeys, jsonKey)
		d.RoleJSONKeys[jsonKey] = true
	}

	addRole(m.saidIdx, "said", "said", "text")
	if m.isVersioned() {
		addRole(m.prefixIdx, "prefix", "prefix", "text")
		addRole(m.previousIdx, "previous", "previous", "text")
		addRole(m.versionIdx, "version", "version", "bigint")
	}
	if m.createdAtIdx >= 0 {
		column := "created_at"
		jsonK := "createdAt"
		if cf, ok := fieldAt(m, m.createdAtIdx); ok {
			column = cf.column
			jsonK = cf.jsonKey
		}
		addRole(m.createdAtIdx, column, jsonK, "datetime")
	}
	for _, f := range m.fields {
		if f.skip {
			continue
		}
		d.Columns = append(d.Columns, f.column)
		d.ColumnTypes = append(d.ColumnTypes, f.colType)
		d.JSONKeys = append(d.JSONKeys, f.jsonKey)
	}

	d.idColumn = idColumn
	d.InsertSQL = buildInsertSQL(tableName, d.Columns)
	d.SelectAllSQL = fmt.Sprintf("SELECT * FROM %s", tableName)
	d.SelectByIDSQL = fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", tableName, idColumn)
	return d
}

func fieldAt(m *recordMeta, idx int) (fieldMeta, bool) {
	// created_at is tracked by index only in recordMeta; recompute its tag
	// metadata the same way regular fields are computed.
	f := m.typ.Field(idx)
	return fieldMeta{
		index:   idx,
		goName:  f.Name,
		column:  columnName(f),
		jsonKey: jsonKey(f),
		colType: "datetime",
	}, true
}

func buildInsertSQL(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

// DescriptorFor returns the registered Descriptor for v's type, if any.
func DescriptorFor(v any) (*Descriptor, bool) {
	t, _, err := elemType(v)
	if err != nil {
		return nil, false
	}
	descMu.RLock()
	d, ok := descCache[t]
	descMu.RUnlock()
	return d, ok
}

// DescriptorForType returns the registered Descriptor for T, if any.
func DescriptorForType[T any]() (*Descriptor, bool) {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	descMu.RLock()
	d, ok := descCache[t]
	descMu.RUnlock()
	return d, ok
}
