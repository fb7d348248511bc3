// Package said implements the self-addressing identifier engine: deriving,
// verifying, and incrementing the content digests that every storable
// record carries in its said (and, for lineages, prefix) field.
package said

import (
	"encoding/base64"
	"fmt"

	"lukechampine.com/blake3"

	"github.com/vstorage-dev/vstorage/storable"
	"github.com/vstorage-dev/vstorage/storagetime"
	"github.com/vstorage-dev/vstorage/vserr"
)

// code is the single-character CESR-style prefix identifying the digest
// algorithm. "E" marks a 32-byte Blake3 digest, matching the length
// constraint baked into storable.Placeholder.
const code = "E"

// Derive computes the said for v: on a copy of v it sets the said field (and
// prefix field, at version 0) to storable.Placeholder, serializes the copy canonically, hashes
// the result, and returns the qb64-style digest string. v is left
// unmodified; callers apply the returned digest themselves via
// storable.SetSaid.
func Derive(v any) (string, error) {
	working, err := storable.Clone(v)
	if err != nil {
		return "", vserr.SerializationError("said: clone for derivation", err)
	}

	if err := storable.SetSaid(working, storable.Placeholder); err != nil {
		return "", vserr.SerializationError("said: set placeholder said", err)
	}

	versioned, err := storable.IsVersioned(working)
	if err != nil {
		return "", vserr.SerializationError("said: check versioned", err)
	}
	if versioned {
		version, err := storable.GetVersion(working)
		if err != nil {
			return "", vserr.SerializationError("said: read version", err)
		}
		if version == 0 {
			if err := storable.SetPrefix(working, storable.Placeholder); err != nil {
				return "", vserr.SerializationError("said: set placeholder prefix", err)
			}
		}
	}

	payload, err := storable.CanonicalJSON(working)
	if err != nil {
		return "", vserr.SerializationError("said: canonical serialization", err)
	}

	return digest(payload), nil
}

// digest computes the qb64-style encoding of payload's Blake3-256 hash: one
// code character followed by the unpadded URL-safe base64 of the 32 raw
// hash bytes, for a fixed 44-character result.
func digest(payload []byte) string {
	sum := blake3.Sum256(payload)
	return code + base64.RawURLEncoding.EncodeToString(sum[:])
}

// Verify reports whether v's said field matches the digest recomputed from
// v's content, returning an InvalidSaid error describing the mismatch if
// not.
func Verify(v any) error {
	want, err := storable.GetSaid(v)
	if err != nil {
		return vserr.SerializationError("said: read said", err)
	}
	got, err := Derive(v)
	if err != nil {
		return err
	}
	if want != got {
		return vserr.InvalidSaidError("said: digest mismatch", got, want)
	}
	return nil
}

// Get returns v's current said value without recomputing it.
func Get(v any) (string, error) {
	return storable.GetSaid(v)
}

// DerivePrefix computes the lineage prefix for a version-0 record: the
// prefix of a lineage is, by definition, the said of its first version.
func DerivePrefix(v any) (string, error) {
	versioned, err := storable.IsVersioned(v)
	if err != nil {
		return "", err
	}
	if !versioned {
		return "", fmt.Errorf("said: DerivePrefix requires a versioned record type")
	}
	version, err := storable.GetVersion(v)
	if err != nil {
		return "", err
	}
	if version != 0 {
		return "", fmt.Errorf("said: DerivePrefix requires version 0, got %d", version)
	}
	return Derive(v)
}

// VerifyPrefix reports whether v's prefix field matches v's own said, as
// required at version 0.
func VerifyPrefix(v any) error {
	prefix, ok, err := storable.GetPrefix(v)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("said: VerifyPrefix requires a versioned record type")
	}
	want, err := storable.GetSaid(v)
	if err != nil {
		return vserr.SerializationError("said: read said", err)
	}
	if prefix != want {
		return vserr.InvalidSaidError("said: prefix mismatch", want, prefix)
	}
	return nil
}

// Increment derives the next version of a versioned record from prev: it
// copies prev, sets previous to prev's said, bumps version by one, resets
// created_at to now, recomputes said, and returns the new record. prev
// itself is left unmodified.
func Increment(prev any) (any, error) {
	versioned, err := storable.IsVersioned(prev)
	if err != nil {
		return nil, err
	}
	if !versioned {
		return nil, fmt.Errorf("said: Increment requires a versioned record type")
	}

	next, err := storable.Clone(prev)
	if err != nil {
		return nil, vserr.SerializationError("said: clone for increment", err)
	}

	prevSaid, err := storable.GetSaid(prev)
	if err != nil {
		return nil, vserr.SerializationError("said: read previous said", err)
	}
	if err := storable.SetPrevious(next, &prevSaid); err != nil {
		return nil, err
	}

	version, err := storable.GetVersion(prev)
	if err != nil {
		return nil, err
	}
	if err := storable.SetVersion(next, version+1); err != nil {
		return nil, err
	}

	if err := storable.SetCreatedAt(next, storagetime.Now()); err != nil {
		return nil, err
	}

	digestStr, err := Derive(next)
	if err != nil {
		return nil, err
	}
	if err := storable.SetSaid(next, digestStr); err != nil {
		return nil, err
	}

	return next, nil
}

// VerifyUnchanged reports whether candidate's content (everything but said)
// is identical to prev's, by comparing the digest that candidate WOULD have
// at version 0 against the same computation for prev. Callers use this to
// detect a no-op update before paying for an Increment and a write.
func VerifyUnchanged(prev, candidate any) (bool, error) {
	prevDigest, err := contentDigest(prev)
	if err != nil {
		return false, err
	}
	candidateDigest, err := contentDigest(candidate)
	if err != nil {
		return false, err
	}
	return prevDigest == candidateDigest, nil
}

// contentDigest hashes a record's content with ALL role fields (said,
// prefix, previous, version, created_at) placeholdered or zeroed out, so
// the result depends only on the non-role fields.
func contentDigest(v any) (string, error) {
	working, err := storable.Clone(v)
	if err != nil {
		return "", vserr.SerializationError("said: clone for content digest", err)
	}
	if err := storable.SetSaid(working, storable.Placeholder); err != nil {
		return "", err
	}
	versioned, err := storable.IsVersioned(working)
	if err != nil {
		return "", err
	}
	if versioned {
		if err := storable.SetPrefix(working, storable.Placeholder); err != nil {
			return "", err
		}
		var nilPrevious *string
		if err := storable.SetPrevious(working, nilPrevious); err != nil {
			return "", err
		}
		if err := storable.SetVersion(working, 0); err != nil {
			return "", err
		}
	}
	if _, ok, err := storable.GetCreatedAt(working); err == nil && ok {
		if err := storable.SetCreatedAt(working, storagetime.Datetime{}); err != nil {
			return "", err
		}
	}
	payload, err := storable.CanonicalJSON(working)
	if err != nil {
		return "", vserr.SerializationError("said: canonical serialization", err)
	}
	return digest(payload), nil
}
