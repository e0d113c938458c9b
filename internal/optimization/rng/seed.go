package rng

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
)

// SeedSource hands out seeds for new streams. Implementations must be safe
// for concurrent use.
type SeedSource interface {
	Seed() uint32
}

// ConstantSeed returns the same seed on every call. Use it for reproducible
// runs.
type ConstantSeed uint32

// Seed implements SeedSource.
func (c ConstantSeed) Seed() uint32 {
	return uint32(c)
}

// CryptoSeed draws every seed from the operating system's cryptographically
// secure generator. It is the default source.
type CryptoSeed struct{}

// Seed implements SeedSource.
func (CryptoSeed) Seed() uint32 {
	var buf [4]byte
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

// DerivedSeed hands out a deterministic sequence of well-mixed seeds
// derived from a base value. Unlike ConstantSeed, streams created from it
// never share state, while the sequence stays identical across runs.
type DerivedSeed struct {
	base uint64
	next atomic.Uint64
}

// NewDerivedSeed returns a DerivedSeed rooted at base.
func NewDerivedSeed(base uint32) *DerivedSeed {
	return &DerivedSeed{base: uint64(base)}
}

// Seed implements SeedSource.
func (d *DerivedSeed) Seed() uint32 {
	stream := d.next.Add(1) - 1
	return uint32(splitMix64(d.base ^ (stream + 0x9e3779b97f4a7c15)))
}

// splitMix64 is the SplitMix64 finalizer.
func splitMix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// SeedFunc adapts a function to SeedSource.
type SeedFunc func() uint32

// Seed implements SeedSource.
func (f SeedFunc) Seed() uint32 {
	return f()
}

// NewStreams creates n independent streams, drawing exactly one seed per
// stream from src in index order. A nil src falls back to CryptoSeed.
func NewStreams(src SeedSource, n int) []*Random {
	if src == nil {
		src = CryptoSeed{}
	}
	streams := make([]*Random, n)
	for i := range streams {
		streams[i] = New(src.Seed())
	}
	return streams
}
