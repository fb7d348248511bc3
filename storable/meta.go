package storable

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/vstorage-dev/vstorage/storagetime"
)

var datetimeType = reflect.TypeOf(storagetime.Datetime{})

// fieldMeta describes one struct field's role and storage identity.
type fieldMeta struct {
	index   int
	goName  string
	column  string
	jsonKey string
	colType string
	skip    bool
}

// recordMeta is the cached, reflection-derived shape of a record type: the
// role field indices plus the ordered list of storable fields. It is the
// runtime analogue of what the original crate's derive macro synthesizes at
// compile time — see spec.md §9's "declarative derivation" design note.
type recordMeta struct {
	typ          reflect.Type
	saidIdx      int
	prefixIdx    int
	previousIdx  int
	versionIdx   int
	createdAtIdx int
	fields       []fieldMeta // all non-said/prefix/previous/version/created_at fields, declaration order
}

func (m *recordMeta) isVersioned() bool {
	return m.prefixIdx >= 0 && m.previousIdx >= 0 && m.versionIdx >= 0
}

var (
	metaMu    sync.RWMutex
	metaCache = map[reflect.Type]*recordMeta{}
)

// elemType returns the struct type pointed to by v, which must be a
// non-nil pointer to struct.
func elemType(v any) (reflect.Type, reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return nil, reflect.Value{}, fmt.Errorf("storable: expected non-nil pointer to struct, got %T", v)
	}
	elem := rv.Elem()
	if elem.Kind() != reflect.Struct {
		return nil, reflect.Value{}, fmt.Errorf("storable: expected pointer to struct, got pointer to %s", elem.Kind())
	}
	return elem.Type(), elem, nil
}

func metaFor(t reflect.Type) (*recordMeta, error) {
	metaMu.RLock()
	m, ok := metaCache[t]
	metaMu.RUnlock()
	if ok {
		return m, nil
	}

	metaMu.Lock()
	defer metaMu.Unlock()
	if m, ok := metaCache[t]; ok {
		return m, nil
	}

	m, err := buildMeta(t)
	if err != nil {
		return nil, err
	}
	metaCache[t] = m
	return m, nil
}

func buildMeta(t reflect.Type) (*recordMeta, error) {
	m := &recordMeta{
		typ:          t,
		saidIdx:      -1,
		prefixIdx:    -1,
		previousIdx:  -1,
		versionIdx:   -1,
		createdAtIdx: -1,
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		tag, has := f.Tag.Lookup("vs")

		switch tag {
		case roleSaid:
			if f.Type.Kind() != reflect.String {
				return nil, fmt.Errorf("storable: %s: said field %q must be string", t, f.Name)
			}
			m.saidIdx = i
			continue
		case rolePrefix:
			if f.Type.Kind() != reflect.String {
				return nil, fmt.Errorf("storable: %s: prefix field %q must be string", t, f.Name)
			}
			m.prefixIdx = i
			continue
		case rolePrevious:
			if f.Type.Kind() != reflect.Ptr || f.Type.Elem().Kind() != reflect.String {
				return nil, fmt.Errorf("storable: %s: previous field %q must be *string", t, f.Name)
			}
			m.previousIdx = i
			continue
		case roleVersion:
			if f.Type.Kind() != reflect.Uint64 {
				return nil, fmt.Errorf("storable: %s: version field %q must be uint64", t, f.Name)
			}
			m.versionIdx = i
			continue
		case roleCreatedAt:
			if f.Type != datetimeType {
				return nil, fmt.Errorf("storable: %s: created_at field %q must be storagetime.Datetime", t, f.Name)
			}
			m.createdAtIdx = i
			continue
		}

		skip := has && tag == roleSkip
		if dbTag, ok := f.Tag.Lookup("db"); ok && firstTagComponent(dbTag) == roleSkip {
			skip = true
		}
		fm := fieldMeta{
			index:   i,
			goName:  f.Name,
			column:  columnName(f),
			jsonKey: jsonKey(f),
			colType: inferColumnType(f.Type),
			skip:    skip,
		}
		m.fields = append(m.fields, fm)
	}

	if m.saidIdx < 0 {
		return nil, fmt.Errorf("storable: %s: no field tagged `vs:\"said\"`", t)
	}
	hasAnyVersioned := m.prefixIdx >= 0 || m.previousIdx >= 0 || m.versionIdx >= 0
	if hasAnyVersioned && !m.isVersioned() {
		return nil, fmt.Errorf("storable: %s: versioned records require prefix, previous, and version fields together", t)
	}

	return m, nil
}

func columnName(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("db"); ok {
		if c := firstTagComponent(tag); c != "" && c != roleSkip {
			return c
		}
	}
	return toSnake(f.Name)
}

func jsonKey(f reflect.StructField) string {
	if tag, ok := f.Tag.Lookup("json"); ok {
		if c := firstTagComponent(tag); c != "" {
			return c
		}
	}
	return toCamel(f.Name)
}

// inferColumnType applies spec.md §3's closed mapping.
func inferColumnType(t reflect.Type) string {
	check := t
	if check.Kind() == reflect.Ptr {
		check = check.Elem()
	}
	if check == datetimeType {
		return "datetime"
	}
	switch check.Kind() {
	case reflect.Int64, reflect.Uint64:
		return "bigint"
	case reflect.Int32, reflect.Uint32, reflect.Int, reflect.Uint:
		return "integer"
	case reflect.Bool:
		return "boolean"
	case reflect.String:
		return "text"
	case reflect.Struct, reflect.Slice, reflect.Array, reflect.Map:
		return "json"
	default:
		return "text"
	}
}
