package catalogue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/electwix/db-catalogue/internal/fileset"
)

// DefaultPath is where the file store keeps the catalogue unless configured
// otherwise.
const DefaultPath = ".adaptivedb/catalogue.json"

// document is the on-disk shape shared by every codec.
type document struct {
	Tables []Table `json:"tables" yaml:"tables" toml:"tables"`
}

// Codec encodes and decodes the catalogue document.
type Codec interface {
	Marshal(doc any) ([]byte, error)
	Unmarshal(data []byte, doc any) error
}

type jsonCodec struct{}

func (jsonCodec) Marshal(doc any) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (jsonCodec) Unmarshal(data []byte, doc any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(doc)
}

type yamlCodec struct{}

func (yamlCodec) Marshal(doc any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (yamlCodec) Unmarshal(data []byte, doc any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(doc)
}

type tomlCodec struct{}

func (tomlCodec) Marshal(doc any) ([]byte, error) {
	return toml.Marshal(doc)
}

func (tomlCodec) Unmarshal(data []byte, doc any) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(doc)
}

// CodecFor picks a codec from the file extension: .json, .yaml/.yml or .toml.
func CodecFor(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return jsonCodec{}, nil
	case ".yaml", ".yml":
		return yamlCodec{}, nil
	case ".toml":
		return tomlCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported catalogue file extension %q", filepath.Ext(path))
	}
}

// FileStore keeps the catalogue in a single file and replaces it atomically
// on every save.
type FileStore struct {
	path   string
	codec  Codec
	writer fileset.Writer
}

// NewFileStore returns a FileStore for path, choosing the codec by extension.
// An empty path selects DefaultPath.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		path = DefaultPath
	}
	codec, err := CodecFor(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, codec: codec, writer: fileset.NewOSWriter()}, nil
}

// Path returns the catalogue file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the catalogue file. A missing file is an empty catalogue.
func (s *FileStore) Load(ctx context.Context) ([]Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var doc document
	if err := s.codec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return doc.Tables, nil
}

// Save encodes tables and replaces the catalogue file.
func (s *FileStore) Save(ctx context.Context, tables []Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tables == nil {
		tables = []Table{}
	}
	data, err := s.codec.Marshal(document{Tables: tables})
	if err != nil {
		return fmt.Errorf("encode catalogue: %w", err)
	}
	if err := s.writer.WriteFile(s.path, data); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}
