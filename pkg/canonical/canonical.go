// Package canonical produces deterministic JSON serializations and content
// hashes. Object keys are sorted at every level, array order is preserved,
// and HTML escaping is disabled so the output is stable across encoders.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Marshal returns the canonical JSON form of v.
func Marshal(v any) ([]byte, error) {
	tree, err := toTree(v)
	if err != nil {
		return nil, err
	}
	return encode(tree)
}

// MarshalWithout returns the canonical JSON form of v with the named
// top-level fields removed. v must serialize to a JSON object.
func MarshalWithout(v any, fields ...string) ([]byte, error) {
	tree, err := toTree(v)
	if err != nil {
		return nil, err
	}
	obj, ok := tree.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("canonical: %T does not serialize to an object", v)
	}
	for _, f := range fields {
		delete(obj, f)
	}
	return encode(obj)
}

// Hash returns the hex SHA-256 digest of the canonical form of v.
func Hash(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return Sum(b), nil
}

// HashWithout hashes v after dropping the named top-level fields. Proof-bearing
// objects are hashed with HashWithout(obj, "proof") at issuance and at
// verification time.
func HashWithout(v any, fields ...string) (string, error) {
	b, err := MarshalWithout(v, fields...)
	if err != nil {
		return "", err
	}
	return Sum(b), nil
}

// Sum returns the hex SHA-256 digest of b.
func Sum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// toTree round-trips v through encoding/json into generic maps and slices so
// struct tags and custom marshalers are honoured. Numbers stay as json.Number
// to keep their textual form.
func toTree(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("canonical: decode: %w", err)
	}
	return tree, nil
}

// encode writes the tree with sorted keys. encoding/json already sorts map
// keys; the encoder is used only to switch off HTML escaping.
func encode(tree any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return nil, fmt.Errorf("canonical: encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
