package pg

import (
	"testing"
	"time"
)

func TestBindColumnNilPassesThrough(t *testing.T) {
	v, err := bindColumn("text", nil)
	if err != nil || v != nil {
		t.Fatalf("bindColumn(nil) = %v, %v", v, err)
	}
}

func TestBindColumnBigintFromJSONFloat(t *testing.T) {
	v, err := bindColumn("bigint", float64(42))
	if err != nil {
		t.Fatal(err)
	}
	if v.(int64) != 42 {
		t.Fatalf("got %v", v)
	}
}

func TestBindColumnDatetimeFromString(t *testing.T) {
	v, err := bindColumn("datetime", "2024-01-01T00:00:00.000000Z")
	if err != nil {
		t.Fatal(err)
	}
	tm, ok := v.(time.Time)
	if !ok {
		t.Fatalf("expected time.Time, got %T", v)
	}
	if tm.Year() != 2024 {
		t.Fatalf("year = %d", tm.Year())
	}
}

func TestScanColumnRoundTripsBigint(t *testing.T) {
	v, err := scanColumn("bigint", int64(7))
	if err != nil {
		t.Fatal(err)
	}
	if v.(float64) != 7 {
		t.Fatalf("got %v", v)
	}
}

func TestScanColumnRoundTripsDatetime(t *testing.T) {
	tm := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	v, err := scanColumn("datetime", tm)
	if err != nil {
		t.Fatal(err)
	}
	if v.(string) != "2024-06-01T00:00:00.000000Z" {
		t.Fatalf("got %v", v)
	}
}

func TestScanColumnNilOmitted(t *testing.T) {
	v, err := scanColumn("text", nil)
	if err != nil || v != nil {
		t.Fatalf("scanColumn(nil) = %v, %v", v, err)
	}
}
