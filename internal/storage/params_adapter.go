package storage

import (
	"context"
	"encoding/json"

	"github.com/toolgraph/shgat/internal/shgat"
)

// ParamsAdapter bridges training.ParamsSaver's (connectionString, Params)
// shape to domain.ParamsRepository's (userID, blob) shape: the training
// worker runs as an isolated subprocess (spec.md §4.8) and is handed a
// raw connection string rather than a live store, so it opens its own
// connection per run instead of sharing the server's pool.
type ParamsAdapter struct {
	// UserID is the repository key the trained weights are saved under.
	// Empty denotes the global/default model.
	UserID string
}

// SaveParams opens a fresh BunStore against connectionString, JSON-encodes
// params, and writes it under a.UserID before closing the connection.
func (a ParamsAdapter) SaveParams(ctx context.Context, connectionString string, params shgat.Params) error {
	blob, err := marshalJSON(params)
	if err != nil {
		return err
	}
	store := NewBunStore(connectionString)
	defer store.Close()
	return store.SaveParams(ctx, a.UserID, blob)
}

// LoadParams is the read-side counterpart, used by the server process to
// restore a previously trained model at startup.
func LoadParams(ctx context.Context, connectionString, userID string) (shgat.Params, error) {
	var params shgat.Params
	store := NewBunStore(connectionString)
	defer store.Close()
	blob, err := store.LoadParams(ctx, userID)
	if err != nil {
		return params, err
	}
	err = json.Unmarshal(blob, &params)
	return params, err
}
