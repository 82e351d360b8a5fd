package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/comalice/storex/internal/core"
)

// fileCodec abstracts the serialization used by fileStore.
type fileCodec struct {
	ext       string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

var (
	jsonCodec = fileCodec{
		ext:       ".json",
		marshal:   func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") },
		unmarshal: json.Unmarshal,
	}
	yamlCodec = fileCodec{
		ext:       ".yaml",
		marshal:   yaml.Marshal,
		unmarshal: yaml.Unmarshal,
	}
)

// fileStore keeps one file per store ID in dir.
type fileStore struct {
	dir   string
	codec fileCodec
}

func newFileStore(dir string, codec fileCodec) (fileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fileStore{}, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return fileStore{dir: dir, codec: codec}, nil
}

func (s fileStore) path(storeID string) string {
	return filepath.Join(s.dir, storeID+s.codec.ext)
}

func (s fileStore) save(snapshot core.Snapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	data, err := s.codec.marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	fn := s.path(snapshot.StoreID)
	tmp := fn + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fn); err != nil {
		return fmt.Errorf("rename %s: %w", fn, err)
	}
	return nil
}

func (s fileStore) load(storeID string) (core.Snapshot, error) {
	fn := s.path(storeID)
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.Snapshot{}, fmt.Errorf("store %q: %w", storeID, core.ErrSnapshotNotFound)
		}
		return core.Snapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}

	var snapshot core.Snapshot
	if err := s.codec.unmarshal(data, &snapshot); err != nil {
		return core.Snapshot{}, fmt.Errorf("unmarshal %s: %w", fn, err)
	}
	snapshot.StoreID = storeID
	return snapshot, nil
}

// JSONPersister is a file-based persister using JSON serialization.
type JSONPersister struct {
	files fileStore
}

// NewJSONPersister creates a JSONPersister, ensuring the directory exists.
func NewJSONPersister(dir string) (*JSONPersister, error) {
	files, err := newFileStore(dir, jsonCodec)
	if err != nil {
		return nil, err
	}
	return &JSONPersister{files: files}, nil
}

func (p *JSONPersister) Save(ctx context.Context, snapshot core.Snapshot) error {
	return p.files.save(snapshot)
}

func (p *JSONPersister) Load(ctx context.Context, storeID string) (core.Snapshot, error) {
	return p.files.load(storeID)
}

// YAMLPersister is a file-based persister using YAML serialization.
type YAMLPersister struct {
	files fileStore
}

// NewYAMLPersister creates a YAMLPersister, ensuring the directory exists.
func NewYAMLPersister(dir string) (*YAMLPersister, error) {
	files, err := newFileStore(dir, yamlCodec)
	if err != nil {
		return nil, err
	}
	return &YAMLPersister{files: files}, nil
}

func (p *YAMLPersister) Save(ctx context.Context, snapshot core.Snapshot) error {
	return p.files.save(snapshot)
}

func (p *YAMLPersister) Load(ctx context.Context, storeID string) (core.Snapshot, error) {
	return p.files.load(storeID)
}
