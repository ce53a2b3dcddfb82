// Package idgen mints the public identifiers that key AR records.
//
// An identifier is a UUIDv7 rendered in lowercase Crockford base32 (26 chars).
// The 48-bit millisecond timestamp and the 12-bit sub-millisecond sequence are
// strictly increasing within a process, so two ids minted in the same clock tick
// still differ; the 62 random bits keep ids from separate processes apart.
package idgen

import (
	"encoding/base32"
	"encoding/binary"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	alphabet = "0123456789abcdefghjkmnpqrstvwxyz"
	// Length is the encoded length of every generated identifier.
	Length = 26
)

var encoding = base32.NewEncoding(alphabet).WithPadding(base32.NoPadding)

// Generator is safe for concurrent use. It needs no external state and never blocks
// beyond the short critical section uuid uses to keep its clock monotonic.
type Generator struct {
	seed    uint64
	counter atomic.Uint64
}

// New returns a Generator.
func New() *Generator {
	return &Generator{
		seed: uint64(time.Now().UnixNano()) ^ uint64(os.Getpid())<<32,
	}
}

// Generate returns a fresh identifier.
func (g *Generator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		// crypto/rand failed; keep minting from time + a process-local counter.
		id = g.fallback()
	}
	return encoding.EncodeToString(id[:])
}

func (g *Generator) fallback() uuid.UUID {
	var id uuid.UUID
	ms := uint64(time.Now().UnixMilli())
	n := g.counter.Add(1)

	binary.BigEndian.PutUint64(id[0:8], ms<<16|(n&0x0fff))
	binary.BigEndian.PutUint64(id[8:16], g.seed+n)

	id[6] = (id[6] & 0x0f) | 0x70 // version 7
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant
	return id
}

// Valid reports whether s has the shape of a generated identifier.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(alphabet, rune(s[i])) {
			return false
		}
	}
	_, err := encoding.DecodeString(s)
	return err == nil
}
