package entity

import (
	"encoding/hex"
	"math/bits"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Bitvector is a growable vector of bits.
//
// Its serialized form is the hex encoding of its bytes, where byte i holds bits
// 8i..8i+7 with bit 8i as the least significant bit. Trailing zero bytes are dropped.
type Bitvector struct {
	data     []byte
	attached bool
	invalid  bool
}

// NewBitvector creates a new Bitvector with the given bits set
func NewBitvector(set ...int) *Bitvector {
	bv := &Bitvector{}
	for _, i := range set {
		bv.Set(i)
	}
	return bv
}

// ParseBitvector parses the serialized form of a Bitvector
func ParseBitvector(s string) (*Bitvector, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "bad bitvector %q", s)
	}
	return &Bitvector{data: data}, nil
}

func (bv *Bitvector) checkValid() {
	if bv.invalid {
		panic(newError(InvalidEntityError, "", "", "access to a bitvector of an invalid entity"))
	}
}

// Set sets bit i
func (bv *Bitvector) Set(i int) {
	bv.checkValid()
	if i < 0 {
		panic(errors.Errorf("negative bit index %d", i))
	}
	for len(bv.data) <= i/8 {
		bv.data = append(bv.data, 0)
	}
	bv.data[i/8] |= 1 << uint(i%8)
}

// Unset clears bit i
func (bv *Bitvector) Unset(i int) {
	bv.checkValid()
	if i < 0 || i/8 >= len(bv.data) {
		return
	}
	bv.data[i/8] &^= 1 << uint(i%8)
}

// Test returns if bit i is set
func (bv *Bitvector) Test(i int) bool {
	bv.checkValid()
	if i < 0 || i/8 >= len(bv.data) {
		return false
	}
	return bv.data[i/8]&(1<<uint(i%8)) != 0
}

// Count returns the number of set bits
func (bv *Bitvector) Count() int {
	bv.checkValid()
	n := 0
	for _, b := range bv.data {
		n += bits.OnesCount8(b)
	}
	return n
}

// ForEach calls f on the index of every set bit in ascending order
func (bv *Bitvector) ForEach(f func(i int)) {
	bv.checkValid()
	for bi, b := range bv.data {
		for b != 0 {
			j := bits.TrailingZeros8(b)
			f(bi*8 + j)
			b &^= 1 << uint(j)
		}
	}
}

// Clone returns a copy of the Bitvector
func (bv *Bitvector) Clone() *Bitvector {
	bv.checkValid()
	return &Bitvector{data: append([]byte(nil), bv.data...)}
}

// SerializeBits returns the serialized form of the Bitvector
func (bv *Bitvector) SerializeBits() string {
	bv.checkValid()
	n := len(bv.data)
	for n > 0 && bv.data[n-1] == 0 {
		n--
	}
	return hex.EncodeToString(bv.data[:n])
}

func (bv *Bitvector) String() string {
	if bv.invalid {
		return "Bitvector<invalid>"
	}
	var sb strings.Builder
	sb.WriteString("Bitvector{")
	first := true
	bv.ForEach(func(i int) {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(strconv.Itoa(i))
	})
	sb.WriteString("}")
	return sb.String()
}

func (bv *Bitvector) invalidate() {
	bv.data = nil
	bv.invalid = true
}
