package said

import (
	"testing"

	"github.com/vstorage-dev/vstorage/storable"
	"github.com/vstorage-dev/vstorage/storagetime"
	"github.com/vstorage-dev/vstorage/vserr"
)

type note struct {
	Said string `vs:"said" json:"said"`
	Body string `json:"body"`
}

type entry struct {
	Said      string               `vs:"said" json:"said"`
	Prefix    string               `vs:"prefix" json:"prefix"`
	Previous  *string              `vs:"previous" json:"previous"`
	Version   uint64               `vs:"version" json:"version"`
	CreatedAt storagetime.Datetime `vs:"created_at" json:"createdAt"`
	Body      string               `json:"body"`
}

func TestDeriveIsDeterministic(t *testing.T) {
	a := &note{Body: "hello"}
	b := &note{Body: "hello"}

	d1, err := Derive(a)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := Derive(b)
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Fatalf("identical content derived different saids: %q != %q", d1, d2)
	}
	if len(d1) != 44 {
		t.Fatalf("said length = %d, want 44", len(d1))
	}
	if d1[0] != 'E' {
		t.Fatalf("said code prefix = %q, want 'E'", d1[0])
	}
}

func TestDeriveChangesWithContent(t *testing.T) {
	d1, err := Derive(&note{Body: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	d2, err := Derive(&note{Body: "goodbye"})
	if err != nil {
		t.Fatal(err)
	}
	if d1 == d2 {
		t.Fatal("different content should derive different saids")
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	n := &note{Body: "hello"}
	digest, err := Derive(n)
	if err != nil {
		t.Fatal(err)
	}
	if err := storable.SetSaid(n, digest); err != nil {
		t.Fatal(err)
	}
	if err := Verify(n); err != nil {
		t.Fatalf("expected valid said to verify, got %v", err)
	}

	n.Body = "tampered"
	err = Verify(n)
	if err == nil {
		t.Fatal("expected verification failure after tampering")
	}
	if !vserr.Is(err, vserr.InvalidSaid) {
		t.Fatalf("expected InvalidSaid kind, got %v", err)
	}
}

func mustCreateV0(t *testing.T, body string) *entry {
	t.Helper()
	e := &entry{Body: body, Version: 0, CreatedAt: storagetime.Now()}
	prefix, err := DerivePrefix(e)
	if err != nil {
		t.Fatal(err)
	}
	if err := storable.SetPrefix(e, prefix); err != nil {
		t.Fatal(err)
	}
	if err := storable.SetSaid(e, prefix); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestVersion0PrefixEqualsSaid(t *testing.T) {
	e := mustCreateV0(t, "v0")
	if err := VerifyPrefix(e); err != nil {
		t.Fatalf("VerifyPrefix: %v", err)
	}
	if e.Prefix != e.Said {
		t.Fatalf("prefix %q != said %q at version 0", e.Prefix, e.Said)
	}
}

func TestIncrementBuildsLineage(t *testing.T) {
	v0 := mustCreateV0(t, "first")

	v1Any, err := Increment(v0)
	if err != nil {
		t.Fatal(err)
	}
	v1 := v1Any.(*entry)
	v1.Body = "second"
	digest, err := Derive(v1)
	if err != nil {
		t.Fatal(err)
	}
	if err := storable.SetSaid(v1, digest); err != nil {
		t.Fatal(err)
	}

	if v1.Version != 1 {
		t.Fatalf("version = %d, want 1", v1.Version)
	}
	if v1.Prefix != v0.Prefix {
		t.Fatalf("prefix drifted across increment: %q != %q", v1.Prefix, v0.Prefix)
	}
	if v1.Previous == nil || *v1.Previous != v0.Said {
		t.Fatalf("previous = %v, want %q", v1.Previous, v0.Said)
	}
	if v1.Said == v0.Said {
		t.Fatal("expected said to change across increment")
	}
}

func TestVerifyUnchangedDetectsNoOp(t *testing.T) {
	v0 := mustCreateV0(t, "same")
	candidateSame := &entry{Body: "same"}
	unchanged, err := VerifyUnchanged(v0, candidateSame)
	if err != nil {
		t.Fatal(err)
	}
	if !unchanged {
		t.Fatal("expected identical content to be detected as unchanged")
	}

	candidateDifferent := &entry{Body: "different"}
	unchanged, err = VerifyUnchanged(v0, candidateDifferent)
	if err != nil {
		t.Fatal(err)
	}
	if unchanged {
		t.Fatal("expected different content to be detected as changed")
	}
}

func TestDerivePrefixRejectsNonZeroVersion(t *testing.T) {
	e := &entry{Body: "x", Version: 1}
	if _, err := DerivePrefix(e); err == nil {
		t.Fatal("expected error deriving prefix at version != 0")
	}
}

func TestDerivePrefixRejectsUnversionedType(t *testing.T) {
	n := &note{Body: "x"}
	if _, err := DerivePrefix(n); err == nil {
		t.Fatal("expected error deriving prefix for unversioned type")
	}
}
