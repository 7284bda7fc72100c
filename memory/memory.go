// Package memory provides the flat, byte-addressable store that the simulated
// register machine fetches instructions from and loads data from.
package memory

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// Segment bases used by the assembler and the loader.
const (
	TextSegment uint32 = 0x00400000
	DataSegment uint32 = 0x10000000
)

// capacity covers the whole 32-bit address space. Storage units are allocated
// lazily, so untouched addresses cost nothing.
const capacity uint64 = 1 << 32

// Memory is the collaborator the core consumes. Accesses are little-endian.
type Memory interface {
	Read(addr uint32, size int) []byte
	Write(addr uint32, data []byte)
}

// Word is the set of access widths the core uses.
type Word interface {
	uint8 | uint16 | uint32
}

// Get reads a value of width T at addr.
func Get[T Word](m Memory, addr uint32) T {
	var v T

	switch any(v).(type) {
	case uint8:
		return T(m.Read(addr, 1)[0])
	case uint16:
		return T(binary.LittleEndian.Uint16(m.Read(addr, 2)))
	default:
		return T(binary.LittleEndian.Uint32(m.Read(addr, 4)))
	}
}

// Set writes a value of width T at addr.
func Set[T Word](m Memory, addr uint32, value T) {
	var buf []byte

	switch any(value).(type) {
	case uint8:
		buf = []byte{uint8(value)}
	case uint16:
		buf = binary.LittleEndian.AppendUint16(nil, uint16(value))
	default:
		buf = binary.LittleEndian.AppendUint32(nil, uint32(value))
	}

	m.Write(addr, buf)
}

// Stats counts accesses by width.
type Stats struct {
	ByteReads  uint64
	HalfReads  uint64
	WordReads  uint64
	ByteWrites uint64
	HalfWrites uint64
	WordWrites uint64
}

// Reads returns the total number of read accesses.
func (s Stats) Reads() uint64 {
	return s.ByteReads + s.HalfReads + s.WordReads
}

// Writes returns the total number of write accesses.
func (s Stats) Writes() uint64 {
	return s.ByteWrites + s.HalfWrites + s.WordWrites
}

// Storage is a Memory backed by an akita storage.
type Storage struct {
	backing *mem.Storage
	stats   Stats
}

// NewStorage creates an empty, zero-filled memory.
func NewStorage() *Storage {
	return &Storage{
		backing: mem.NewStorage(capacity),
	}
}

// Read returns size bytes starting at addr.
func (s *Storage) Read(addr uint32, size int) []byte {
	data, err := s.backing.Read(uint64(addr), uint64(size))
	if err != nil {
		panic(fmt.Sprintf("memory: read %d bytes at 0x%08x: %v", size, addr, err))
	}

	s.count(size, false)

	return data
}

// Write stores data starting at addr.
func (s *Storage) Write(addr uint32, data []byte) {
	err := s.backing.Write(uint64(addr), data)
	if err != nil {
		panic(fmt.Sprintf("memory: write %d bytes at 0x%08x: %v", len(data), addr, err))
	}

	s.count(len(data), true)
}

// Load copies an image into memory without touching the access statistics.
func (s *Storage) Load(base uint32, image []byte) error {
	if len(image) == 0 {
		return nil
	}

	if uint64(base)+uint64(len(image)) > capacity {
		return fmt.Errorf("memory: image of %d bytes does not fit at 0x%08x",
			len(image), base)
	}

	return s.backing.Write(uint64(base), image)
}

// Stats returns the access statistics collected so far.
func (s *Storage) Stats() Stats {
	return s.stats
}

func (s *Storage) count(size int, write bool) {
	switch {
	case size == 1 && write:
		s.stats.ByteWrites++
	case size == 1:
		s.stats.ByteReads++
	case size == 2 && write:
		s.stats.HalfWrites++
	case size == 2:
		s.stats.HalfReads++
	case write:
		s.stats.WordWrites++
	default:
		s.stats.WordReads++
	}
}
