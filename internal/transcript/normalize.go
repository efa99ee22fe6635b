package transcript

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"lukechampine.com/blake3"
)

// Normalize prepares a transcript loaded from an external source (import
// file, API request, store) for use by the editing core. It guarantees the
// invariants the core packages assume instead of defending against their
// absence everywhere:
//
//   - every segment carries a non-nil Tags slice (empty rather than absent),
//   - every segment carries a non-nil Words slice,
//   - every segment has a non-empty ID (missing ids are generated).
//
// Normalize mutates t in place and is the only place in the service that
// massages segment data; the scope and confidence packages treat their
// inputs as already well-formed.
func Normalize(t *Transcript) error {
	if t == nil {
		return fmt.Errorf("transcript: normalize nil transcript")
	}
	for i := range t.Segments {
		seg := &t.Segments[i]
		if seg.Tags == nil {
			seg.Tags = []string{}
		}
		if seg.Words == nil {
			seg.Words = []Word{}
		}
		if seg.ID == "" {
			id, err := generateID()
			if err != nil {
				return fmt.Errorf("transcript: generate segment id: %w", err)
			}
			seg.ID = id
		}
	}
	return nil
}

// Revision returns a blake3 content hash of the transcript snapshot,
// hex-encoded. Two transcripts with identical segment content, order, and
// confirmation state produce the same revision; any edit changes it.
// Stores and the HTTP API use revisions for cheap staleness checks.
func Revision(t *Transcript) string {
	h := blake3.New(32, nil)

	writeString := func(s string) {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	writeFloat := func(f float64) {
		var n [8]byte
		binary.LittleEndian.PutUint64(n[:], math.Float64bits(f))
		h.Write(n[:])
	}

	writeString(t.ID)
	writeString(t.Name)
	for _, seg := range t.Segments {
		writeString(seg.ID)
		writeString(seg.Speaker)
		writeString(seg.Text)
		writeFloat(seg.Start)
		writeFloat(seg.End)
		if seg.Confirmed {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
		for _, tag := range seg.Tags {
			writeString(tag)
		}
		for _, w := range seg.Words {
			writeString(w.Text)
			writeFloat(w.Start)
			writeFloat(w.End)
			if score, ok := w.Score(); ok {
				h.Write([]byte{1})
				writeFloat(score)
			} else {
				h.Write([]byte{0})
			}
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

// generateID returns a random 16-character hex id for segments imported
// without one.
func generateID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
