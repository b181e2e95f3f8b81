package generate

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/zeebo/blake3"
)

// stableDomainKey is the 32-byte key for BLAKE3 keyed hashing. The byte
// values are the ASCII encoding of the domain name, zero-padded to 32 bytes,
// so the key stays inspectable in hex dumps while keeping generated names
// separated from any other BLAKE3 use.
var stableDomainKey = [32]byte{
	'p', 'a', 'c', 'k', 's', 'm', 'i', 't', 'h', '.', 'g', 'e', 'n', 'e', 'r', 'a',
	't', 'e', '.', 's', 't', 'a', 'b', 'l', 'e', 0, 0, 0, 0, 0, 0, 0,
}

// Hash widths in hex characters. The full width matches the 64-bit digest of
// the scoreboard objective name space (16 characters), the short width is
// half that for compact suffixes.
const (
	hashWidth      = 16
	shortHashWidth = 8
)

// StableHash returns the fixed-width stable hash of a value. Equal content
// always produces the same string, across processes and builds. Strings and
// byte slices hash their raw bytes; any other value is canonicalized to JSON
// (map keys sorted) first.
func StableHash(value any) string {
	return stableHash(value, false)
}

// StableShortHash returns the truncated form of StableHash, distinguishable
// from the full form only by length.
func StableShortHash(value any) string {
	return stableHash(value, true)
}

func stableHash(value any, short bool) string {
	digest := keyedDigest(canonicalBytes(value))
	if short {
		return hex.EncodeToString(digest[:])[:shortHashWidth]
	}
	return hex.EncodeToString(digest[:])[:hashWidth]
}

// canonicalBytes maps a value to the byte sequence fed to the digest.
func canonicalBytes(value any) []byte {
	switch v := value.(type) {
	case string:
		return []byte(v)
	case []byte:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			// Unmarshalable values (channels, funcs) still need a
			// deterministic representation for hashing.
			return []byte(fmt.Sprintf("%T:%v", v, v))
		}
		return data
	}
}

func keyedDigest(data []byte) [32]byte {
	// NewKeyed only fails for wrong key length, which the fixed-size
	// array rules out.
	hasher, err := blake3.NewKeyed(stableDomainKey[:])
	if err != nil {
		panic("generate: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest
}
