package storable

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/vstorage-dev/vstorage/storagetime"
)

// Placeholder is substituted for the said (and, at version 0, prefix) field
// before hashing. Its length must equal the canonical digest encoding's
// length (44) so the serialized byte length is placeholder-invariant.
const Placeholder = "############################################"

// IsVersioned reports whether v's type declares prefix, previous, and
// version fields together.
func IsVersioned(v any) (bool, error) {
	t, _, err := elemType(v)
	if err != nil {
		return false, err
	}
	m, err := metaFor(t)
	if err != nil {
		return false, err
	}
	return m.isVersioned(), nil
}

// Clone returns a new pointer to a shallow copy of the struct pointed to by v.
func Clone(v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return nil, fmt.Errorf("storable: Clone expects non-nil pointer, got %T", v)
	}
	out := reflect.New(rv.Elem().Type())
	out.Elem().Set(rv.Elem())
	return out.Interface(), nil
}

// GetSaid returns the value of v's said field.
func GetSaid(v any) (string, error) {
	t, ev, err := elemType(v)
	if err != nil {
		return "", err
	}
	m, err := metaFor(t)
	if err != nil {
		return "", err
	}
	return ev.Field(m.saidIdx).String(), nil
}

// SetSaid overwrites v's said field.
func SetSaid(v any, said string) error {
	t, ev, err := elemType(v)
	if err != nil {
		return err
	}
	m, err := metaFor(t)
	if err != nil {
		return err
	}
	ev.Field(m.saidIdx).SetString(said)
	return nil
}

// GetPrefix returns the value of v's prefix field (empty, ok=false if v is
// not versioned).
func GetPrefix(v any) (string, bool, error) {
	t, ev, err := elemType(v)
	if err != nil {
		return "", false, err
	}
	m, err := metaFor(t)
	if err != nil {
		return "", false, err
	}
	if m.prefixIdx < 0 {
		return "", false, nil
	}
	return ev.Field(m.prefixIdx).String(), true, nil
}

// SetPrefix overwrites v's prefix field.
func SetPrefix(v any, prefix string) error {
	t, ev, err := elemType(v)
	if err != nil {
		return err
	}
	m, err := metaFor(t)
	if err != nil {
		return err
	}
	if m.prefixIdx < 0 {
		return fmt.Errorf("storable: %s has no prefix field", t)
	}
	ev.Field(m.prefixIdx).SetString(prefix)
	return nil
}

// GetPrevious returns v's previous pointer (nil at version 0).
func GetPrevious(v any) (*string, error) {
	t, ev, err := elemType(v)
	if err != nil {
		return nil, err
	}
	m, err := metaFor(t)
	if err != nil {
		return nil, err
	}
	if m.previousIdx < 0 {
		return nil, fmt.Errorf("storable: %s has no previous field", t)
	}
	p := ev.Field(m.previousIdx).Interface().(*string)
	return p, nil
}

// SetPrevious overwrites v's previous pointer.
func SetPrevious(v any, previous *string) error {
	t, ev, err := elemType(v)
	if err != nil {
		return err
	}
	m, err := metaFor(t)
	if err != nil {
		return err
	}
	if m.previousIdx < 0 {
		return fmt.Errorf("storable: %s has no previous field", t)
	}
	ev.Field(m.previousIdx).Set(reflect.ValueOf(previous))
	return nil
}

// GetVersion returns v's version counter.
func GetVersion(v any) (uint64, error) {
	t, ev, err := elemType(v)
	if err != nil {
		return 0, err
	}
	m, err := metaFor(t)
	if err != nil {
		return 0, err
	}
	if m.versionIdx < 0 {
		return 0, fmt.Errorf("storable: %s has no version field", t)
	}
	return ev.Field(m.versionIdx).Uint(), nil
}

// SetVersion overwrites v's version counter.
func SetVersion(v any, version uint64) error {
	t, ev, err := elemType(v)
	if err != nil {
		return err
	}
	m, err := metaFor(t)
	if err != nil {
		return err
	}
	if m.versionIdx < 0 {
		return fmt.Errorf("storable: %s has no version field", t)
	}
	ev.Field(m.versionIdx).SetUint(version)
	return nil
}

// GetCreatedAt returns v's created_at value and whether the field exists.
func GetCreatedAt(v any) (storagetime.Datetime, bool, error) {
	t, ev, err := elemType(v)
	if err != nil {
		return storagetime.Datetime{}, false, err
	}
	m, err := metaFor(t)
	if err != nil {
		return storagetime.Datetime{}, false, err
	}
	if m.createdAtIdx < 0 {
		return storagetime.Datetime{}, false, nil
	}
	return ev.Field(m.createdAtIdx).Interface().(storagetime.Datetime), true, nil
}

// SetCreatedAt overwrites v's created_at value, if the field exists.
func SetCreatedAt(v any, ts storagetime.Datetime) error {
	t, ev, err := elemType(v)
	if err != nil {
		return err
	}
	m, err := metaFor(t)
	if err != nil {
		return err
	}
	if m.createdAtIdx < 0 {
		return nil
	}
	ev.Field(m.createdAtIdx).Set(reflect.ValueOf(ts))
	return nil
}

// CanonicalJSON serializes v exactly as encoding/json would: field order
// follows declaration order, which is what makes this the sole valid input
// to the SAID hash.
func CanonicalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}
