package index

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hantube/hantube/internal/corpus"
	"github.com/hantube/hantube/internal/observe"
	"github.com/hantube/hantube/pkg/provider/embeddings"
)

// Persistence layout: an index directory holds three files.
//
//	manifest.json   — embedding model, dimensions, document count
//	documents.json  — the parsed corpus documents, in index order
//	vectors.gob     — the embedding vectors, in the same order
const (
	manifestFile  = "manifest.json"
	documentsFile = "documents.json"
	vectorsFile   = "vectors.gob"
)

var (
	// ErrNotFound is returned by Load when the index directory or any of its
	// files does not exist.
	ErrNotFound = errors.New("index: not found")

	// ErrIncompatible is returned by Load when a persisted index was built
	// with a different embedding model or dimensionality than the provider
	// being loaded against. Mixing vector spaces silently would corrupt
	// retrieval, so the caller must rebuild instead.
	ErrIncompatible = errors.New("index: incompatible with embedding provider")
)

// manifest describes the provenance of a persisted index.
type manifest struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	Count      int    `json:"count"`
}

// Save writes the index to dir, creating it if necessary. Existing index
// files in dir are overwritten.
func (ix *Index) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("index: create directory: %w", err)
	}

	m := manifest{Model: ix.model, Dimensions: ix.dims, Count: len(ix.entries)}
	mdata, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("index: marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), mdata, 0o644); err != nil {
		return fmt.Errorf("index: write manifest: %w", err)
	}

	docs := make([]corpus.Document, len(ix.entries))
	vecs := make([][]float32, len(ix.entries))
	for i, e := range ix.entries {
		docs[i] = e.Document
		vecs[i] = e.Vector
	}

	ddata, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("index: marshal documents: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, documentsFile), ddata, 0o644); err != nil {
		return fmt.Errorf("index: write documents: %w", err)
	}

	vf, err := os.Create(filepath.Join(dir, vectorsFile))
	if err != nil {
		return fmt.Errorf("index: create vectors file: %w", err)
	}
	defer vf.Close()
	if err := gob.NewEncoder(vf).Encode(vecs); err != nil {
		return fmt.Errorf("index: encode vectors: %w", err)
	}
	return nil
}

// Load reads a persisted index from dir and binds it to provider for query
// embedding.
//
// Returns ErrNotFound when dir or any index file is missing, ErrIncompatible
// when the persisted index was built with a different model or dimensionality
// than provider reports, and a descriptive error for corrupt files. Callers
// typically fall back to a fresh Build in all three cases.
func Load(dir string, provider embeddings.Provider) (*Index, error) {
	mdata, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("index: read manifest: %w", err)
	}

	var m manifest
	if err := json.Unmarshal(mdata, &m); err != nil {
		return nil, fmt.Errorf("index: parse manifest: %w", err)
	}
	if m.Model != provider.ModelID() {
		return nil, fmt.Errorf("%w: index built with model %q, provider is %q",
			ErrIncompatible, m.Model, provider.ModelID())
	}
	if dims := provider.Dimensions(); dims != 0 && m.Dimensions != dims {
		return nil, fmt.Errorf("%w: index has %d dimensions, provider reports %d",
			ErrIncompatible, m.Dimensions, dims)
	}

	ddata, err := os.ReadFile(filepath.Join(dir, documentsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("index: read documents: %w", err)
	}
	var docs []corpus.Document
	if err := json.Unmarshal(ddata, &docs); err != nil {
		return nil, fmt.Errorf("index: parse documents: %w", err)
	}

	vf, err := os.Open(filepath.Join(dir, vectorsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("index: open vectors: %w", err)
	}
	defer vf.Close()
	var vecs [][]float32
	if err := gob.NewDecoder(vf).Decode(&vecs); err != nil {
		return nil, fmt.Errorf("index: decode vectors: %w", err)
	}

	if len(docs) != len(vecs) || len(docs) != m.Count {
		return nil, fmt.Errorf("index: inconsistent files: manifest count %d, %d documents, %d vectors",
			m.Count, len(docs), len(vecs))
	}

	entries := make([]Entry, len(docs))
	for i := range docs {
		entries[i] = Entry{Document: docs[i], Vector: vecs[i]}
	}

	return &Index{
		provider: provider,
		entries:  entries,
		model:    m.Model,
		dims:     m.Dimensions,
		metrics:  observe.DefaultMetrics(),
	}, nil
}
