package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	aaerrors "github.com/randalmurphal/aa/internal/errors"
)

// YAMLStore keeps counters in a single YAML document:
//
//	projects:
//	  PRJ:
//	    last_root: 42
//	    subtasks:
//	      "5": 3
//	      "12-2": 4
type YAMLStore struct {
	path string
	mu   sync.Mutex
}

// NewYAMLStore creates a store backed by the YAML file at path.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// Path returns the cache file path.
func (s *YAMLStore) Path() string {
	return s.path
}

// Exists reports whether the cache file is present.
func (s *YAMLStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Close is a no-op; the file is only open during Load and Save.
func (s *YAMLStore) Close() error {
	return nil
}

// Load reads the cache file. Unknown keys, negative counters and malformed
// subtask keys are rejected rather than silently dropped.
func (s *YAMLStore) Load(_ context.Context) (*Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewData(), nil
		}
		return nil, aaerrors.ErrCacheInvalid(s.path, "cannot read file").WithCause(err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return NewData(), nil
	}

	d := NewData()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(d); err != nil {
		if errors.Is(err, io.EOF) {
			return NewData(), nil
		}
		return nil, aaerrors.ErrCacheInvalid(s.path, err.Error()).WithCause(err)
	}
	d.normalize()
	if err := d.Validate(); err != nil {
		return nil, aaerrors.ErrCacheInvalid(s.path, err.Error()).WithCause(err)
	}
	return d, nil
}

// Save writes d atomically.
func (s *YAMLStore) Save(_ context.Context, d *Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.normalize()
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return aaerrors.ErrCacheWrite(s.path).WithCause(err)
	}
	if err := enc.Close(); err != nil {
		return aaerrors.ErrCacheWrite(s.path).WithCause(err)
	}
	if err := writeFileAtomic(s.path, buf.Bytes(), 0644); err != nil {
		return aaerrors.ErrCacheWrite(s.path).WithCause(err)
	}
	return nil
}
