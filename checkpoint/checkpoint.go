// Package checkpoint implements the sync/async persistence path spec §4.9
// names: atomic scratch-file-then-rename writes, optional deflate
// compression via klauspost/compress (the same compression family badger
// itself depends on, rather than reaching for a second library), a
// dirty-flag table keyed by learner kind, and a periodic saver.
package checkpoint

import (
	"errors"
)

// Sentinel errors the Manager returns for the three named load/save
// failure modes (spec §4.9).
var (
	// ErrIncompatible is returned by Load when the stored schemaVersion
	// does not match the Manager's.
	ErrIncompatible = errors.New("checkpoint: incompatible schema version")
	// ErrCorrupt is returned by Load when the stored bytes fail to
	// deserialize; the corrupt file is renamed aside before returning.
	ErrCorrupt = errors.New("checkpoint: corrupt checkpoint file")
	// ErrBackpressure is returned by SaveAsync when the async queue is full;
	// callers fall back to a synchronous Save.
	ErrBackpressure = errors.New("checkpoint: async queue full")
)

const (
	magicNumber   uint32 = 0x4C435031 // "LCP1"
	schemaVersion uint16 = 1
)

// header is the 8-byte prefix spec §6 asks every checkpoint file to carry:
// a magic number, the schema version, and a tag identifying the learner
// kind that wrote it (so a file extracted from a kind-keyed directory can
// still be sanity-checked against the kind it claims to be).
type header struct {
	Magic         uint32
	SchemaVersion uint16
	KindTag       uint16
}

// kindTag hashes kind down to a uint16 with FNV-1a, folding the upper and
// lower halves together so a 32-kind registry has negligible collision risk
// for this purely-diagnostic field.
func kindTag(kind string) uint16 {
	var h uint32 = 2166136261
	for i := 0; i < len(kind); i++ {
		h ^= uint32(kind[i])
		h *= 16777619
	}
	return uint16(h>>16) ^ uint16(h)
}
