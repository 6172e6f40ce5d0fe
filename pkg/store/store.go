// Package store persists chart snapshots.
//
// A snapshot is the JSON form of a [chart.Chart] keyed by the chart uuid.
// Two backends implement [Store]:
//   - [FileStore]: one JSON file per chart, for the CLI and single-node servers
//   - [MongoStore]: a MongoDB collection, for shared deployments
//
// # Usage
//
//	st, err := store.NewFileStore("")  // Uses $XDG_DATA_HOME/sseqchart/charts/
//	if err != nil {
//	    return err
//	}
//	if err := store.SaveChart(ctx, st, c); err != nil {
//	    return err
//	}
//	c, err = store.LoadChart(ctx, st, id)
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/observability"
)

// ErrNotFound is returned when no snapshot exists for an id.
var ErrNotFound = errors.New("snapshot not found")

// Info describes a stored snapshot without its data.
type Info struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Size      int       `json:"size" bson:"size"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Store is the interface for snapshot storage backends.
type Store interface {
	// Save writes the snapshot data for id, replacing any previous one.
	Save(ctx context.Context, id, name string, data []byte) error

	// Load returns the snapshot data for id, or ErrNotFound.
	Load(ctx context.Context, id string) ([]byte, error)

	// List returns every stored snapshot, most recently updated first.
	List(ctx context.Context) ([]Info, error)

	// Delete removes the snapshot for id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// SaveChart marshals c and saves it under its uuid.
func SaveChart(ctx context.Context, s Store, c *chart.Chart) error {
	start := time.Now()
	data, err := json.Marshal(c)
	if err == nil {
		err = s.Save(ctx, c.UUID, c.Name, data)
	}
	observability.Store().OnSnapshotSaved(ctx, backendName(s), len(data), time.Since(start), err)
	return err
}

// LoadChart loads and decodes the snapshot saved under id.
func LoadChart(ctx context.Context, s Store, id string) (*chart.Chart, error) {
	start := time.Now()
	data, err := s.Load(ctx, id)
	var c *chart.Chart
	if err == nil {
		c, err = chart.Decode(data)
	}
	observability.Store().OnSnapshotLoaded(ctx, backendName(s), time.Since(start), err)
	return c, err
}

func backendName(s Store) string {
	switch s.(type) {
	case *FileStore:
		return "file"
	case *MongoStore:
		return "mongo"
	}
	return "custom"
}
