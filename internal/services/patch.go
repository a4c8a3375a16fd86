package services

import (
	"encoding/json"
	"fmt"

	"github.com/example/coimbatore-discount/internal/domain"
)

// Patch is a partial update as sent by a client, keyed by JSON field name.
type Patch map[string]json.RawMessage

// Has reports whether the patch carries key.
func (p Patch) Has(key string) bool {
	_, ok := p[key]
	return ok
}

type allowList map[string]struct{}

func newAllowList(keys ...string) allowList {
	out := make(allowList, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

func (a allowList) with(keys ...string) allowList {
	out := make(allowList, len(a)+len(keys))
	for k := range a {
		out[k] = struct{}{}
	}
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

// merge copies the allowed keys of p onto dst. Every other key is dropped,
// so callers never have to strip protected fields one by one.
func merge(dst any, p Patch, allowed allowList) error {
	filtered := make(map[string]json.RawMessage, len(p))
	for k, v := range p {
		if _, ok := allowed[k]; ok {
			filtered[k] = v
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	raw, err := json.Marshal(filtered)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}
