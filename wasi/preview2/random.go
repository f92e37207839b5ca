package preview2

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
)

// RNG is a source of random bytes and integers.
type RNG interface {
	io.Reader
	Uint64() uint64
}

// Seed128 is a 128-bit seed value. It is metadata only: nothing in the host
// derives randomness from it.
type Seed128 struct {
	Hi, Lo uint64
}

func (s Seed128) String() string {
	return fmt.Sprintf("%016x%016x", s.Hi, s.Lo)
}

type secureRNG struct{}

func (secureRNG) Read(p []byte) (int, error) { return crand.Read(p) }

func (secureRNG) Uint64() uint64 {
	var b [8]byte
	_, _ = crand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// SecureRNG returns the operating system's cryptographic random source.
func SecureRNG() RNG { return secureRNG{} }

// InsecureRNG is a fast, deterministic generator. It must not be used for
// anything security sensitive.
type InsecureRNG struct {
	r  *rand.Rand
	mu sync.Mutex
}

// NewInsecureRNG returns a PCG generator seeded with seed.
func NewInsecureRNG(seed Seed128) *InsecureRNG {
	return &InsecureRNG{r: rand.New(rand.NewPCG(seed.Hi, seed.Lo))}
}

func (g *InsecureRNG) Uint64() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.r.Uint64()
}

func (g *InsecureRNG) Read(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 0; i < len(p); i += 8 {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], g.r.Uint64())
		copy(p[i:], b[:])
	}
	return len(p), nil
}

// RandomSeed128 draws a seed from the cryptographic source.
func RandomSeed128() Seed128 {
	var b [16]byte
	_, _ = crand.Read(b[:])
	return Seed128{
		Hi: binary.LittleEndian.Uint64(b[:8]),
		Lo: binary.LittleEndian.Uint64(b[8:]),
	}
}
