// Package fingerprint derives cache keys for playlist sources.
//
// A fingerprint identifies a specific version of a source's content, so a
// changed file under the same path is a different key and an identical
// file under a new path is the same key.
package fingerprint

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Sum returns the hex-encoded 64-bit content hash of raw playlist bytes.
func Sum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
