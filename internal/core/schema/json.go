package schema

import (
	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"

	"github.com/zeusync/docworld/pkg/generic"
)

var digests = generic.NewPool(xxhash.New, (*xxhash.Digest).Reset)

// Marshal encodes v and renders it as JSON.
func Marshal(d Descriptor, v any) ([]byte, error) {
	raw, err := Encode(d, v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(raw)
}

// Unmarshal parses data and decodes it against d.
func Unmarshal(d Descriptor, data []byte) (any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return Decode(d, raw)
}

// Canonical renders an untyped JSON value with sorted object keys, so two
// structurally equal values render identically.
func Canonical(raw any) ([]byte, error) {
	return json.Marshal(raw)
}

// Fingerprint hashes the canonical form of an untyped JSON value. The value
// is encoded straight into the hash.
func Fingerprint(raw any) (uint64, error) {
	d := digests.Get()
	defer digests.Put(d)
	if err := json.NewEncoder(d).Encode(raw); err != nil {
		return 0, err
	}
	return d.Sum64(), nil
}
