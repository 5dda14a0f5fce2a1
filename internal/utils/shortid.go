package utils

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ShortID is the 6-byte record identifier used across all collections.
// It is stored in Mongo as BinData with custom subtype 0x80 and rendered
// to clients as a 10-character Crockford Base32 string.
type ShortID [6]byte

const shortIDAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var shortIDDecode [256]byte

func init() {
	for i := range shortIDDecode {
		shortIDDecode[i] = 0xFF
	}
	for i := 0; i < len(shortIDAlphabet); i++ {
		c := shortIDAlphabet[i]
		shortIDDecode[c] = byte(i)
		if c >= 'A' && c <= 'Z' {
			shortIDDecode[c+'a'-'A'] = byte(i)
		}
	}
	// Crockford aliases: I/L read as 1, O as 0.
	for _, c := range []byte{'i', 'I', 'l', 'L'} {
		shortIDDecode[c] = 1
	}
	for _, c := range []byte{'o', 'O'} {
		shortIDDecode[c] = 0
	}
}

// NewShortID returns a random ShortID.
func NewShortID() ShortID {
	var id ShortID
	if _, err := rand.Read(id[:]); err != nil {
		// crypto/rand failing means the host is broken; a zero ID will
		// surface as a duplicate key on insert rather than silently pass.
		return ShortID{}
	}
	return id
}

// String encodes the ID as 10 Crockford Base32 characters.
func (id ShortID) String() string {
	out := make([]byte, 10)
	var bits uint64
	var nbits uint
	pos := 0
	for _, b := range id {
		bits |= uint64(b) << nbits
		nbits += 8
		for nbits >= 5 {
			out[pos] = shortIDAlphabet[bits&0x1F]
			pos++
			bits >>= 5
			nbits -= 5
		}
	}
	if pos < 10 {
		out[pos] = shortIDAlphabet[bits&0x1F]
	}
	return string(out)
}

// IsZero reports whether the ID is the zero value.
func (id ShortID) IsZero() bool {
	return id == ShortID{}
}

// ParseShortID decodes a 10-character Crockford Base32 string into a ShortID.
func ParseShortID(s string) (ShortID, error) {
	if len(s) != 10 {
		return ShortID{}, fmt.Errorf("invalid id %q: want 10 characters, got %d", s, len(s))
	}
	var id ShortID
	var bits uint64
	var nbits uint
	pos := 0
	for i := 0; i < 10; i++ {
		v := shortIDDecode[s[i]]
		if v == 0xFF {
			return ShortID{}, fmt.Errorf("invalid id %q: bad character %q", s, s[i])
		}
		bits |= uint64(v) << nbits
		nbits += 5
		for nbits >= 8 && pos < 6 {
			id[pos] = byte(bits & 0xFF)
			pos++
			bits >>= 8
			nbits -= 8
		}
	}
	if pos != 6 {
		return ShortID{}, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// MarshalBSONValue stores the ID as BinData subtype 0x80.
func (id ShortID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(primitive.Binary{Subtype: 0x80, Data: id[:]})
}

// UnmarshalBSONValue accepts BinData of length 6 (any subtype, so fixtures
// inserted with the default subtype still decode).
func (id *ShortID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null {
		*id = ShortID{}
		return nil
	}
	var bin primitive.Binary
	raw := bson.RawValue{Type: t, Value: data}
	if err := raw.Unmarshal(&bin); err != nil {
		return fmt.Errorf("decode ShortID: %w", err)
	}
	if len(bin.Data) != 6 {
		return errors.New("decode ShortID: binary data is not 6 bytes")
	}
	copy(id[:], bin.Data)
	return nil
}

// MarshalJSON renders the ID as its Base32 string.
func (id ShortID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON parses the Base32 string form.
func (id *ShortID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseShortID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
