package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
)

// Algorithm represents the hashing algorithm to use
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	// Extensible: add more algorithms here
)

// canonical marshals with lexicographically sorted object keys so two
// logically identical parameter maps always serialize identically.
var canonical = sonic.Config{SortMapKeys: true}.Froze()

// Deriver turns call parameters into deterministic deduplication keys
type Deriver struct {
	algorithm Algorithm
}

// New creates a deriver with the specified algorithm
func New(algorithm Algorithm) *Deriver {
	return &Deriver{
		algorithm: algorithm,
	}
}

// Default returns a deriver with the default algorithm
func Default() *Deriver {
	return New(SHA256)
}

// Sum computes a hex-encoded digest of the input data
func (d *Deriver) Sum(data []byte) string {
	switch d.algorithm {
	case SHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	default:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:])
	}
}

// SumString computes a digest of a string
func (d *Deriver) SumString(s string) string {
	return d.Sum([]byte(s))
}

// FromParams computes a digest of a parameter object. The object is
// serialized canonically (sorted keys), so the digest is deterministic:
// same logical parameters, same key.
func (d *Deriver) FromParams(v interface{}) (string, error) {
	data, err := canonical.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize params: %w", err)
	}
	return d.Sum(data), nil
}

// FromFields computes a digest from multiple fields.
// Fields are sorted then joined with a delimiter for consistent hashing.
func (d *Deriver) FromFields(fields ...string) string {
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)

	return d.SumString(strings.Join(sorted, "|"))
}

// Derive produces the default deduplication key for a dependency call:
// the canonical digest of params namespaced under the dependency name.
func Derive(dependency string, params map[string]interface{}) (string, error) {
	digest, err := Default().FromParams(params)
	if err != nil {
		return "", err
	}
	return Namespaced(dependency, digest), nil
}

// Namespaced prefixes a logical key with its dependency name to avoid
// cross-dependency collisions in shared stores
func Namespaced(dependency, key string) string {
	return dependency + ":" + key
}
