package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/Alterya/Globe/pkg/graph"
)

// GraphStore defines an interface for persisting built networks.
type GraphStore interface {
	// StoreGraph persists a network snapshot.
	StoreGraph(ctx context.Context, network *graph.Network) error

	// LoadGraph loads a network snapshot from storage.
	LoadGraph(ctx context.Context) (*graph.Network, error)
}

// JSONGraphStore implements GraphStore using JSON files.
type JSONGraphStore struct {
	filePath string
}

// NewJSONGraphStore creates a new JSON graph store.
func NewJSONGraphStore(filePath string) *JSONGraphStore {
	return &JSONGraphStore{
		filePath: filePath,
	}
}

// StoreGraph stores the network as JSON.
func (s *JSONGraphStore) StoreGraph(ctx context.Context, network *graph.Network) error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(network, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.filePath, data, 0644)
}

// LoadGraph loads a network from a JSON file.
func (s *JSONGraphStore) LoadGraph(ctx context.Context) (*graph.Network, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, err
	}

	var network graph.Network
	if err := json.Unmarshal(data, &network); err != nil {
		return nil, err
	}

	return &network, nil
}
