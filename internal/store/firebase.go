package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

var nullJSON = []byte("null")

// FirebaseStore is the networked Accessor backed by Firebase Realtime
// Database. Paths map directly onto database refs.
type FirebaseStore struct {
	client *db.Client
}

// NewFirebaseStore initializes a Firebase app against databaseURL. With an
// empty credentialsFile the SDK falls back to GOOGLE_APPLICATION_CREDENTIALS
// or application default credentials.
func NewFirebaseStore(ctx context.Context, databaseURL, credentialsFile string) (*FirebaseStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting database client: %w", err)
	}

	return &FirebaseStore{client: client}, nil
}

// Exists reports whether anything is stored at or under path.
func (s *FirebaseStore) Exists(ctx context.Context, path string) (bool, error) {
	var raw json.RawMessage
	if err := s.client.NewRef(path).Get(ctx, &raw); err != nil {
		return false, fmt.Errorf("checking path %q: %w", path, err)
	}
	return len(raw) > 0 && !bytes.Equal(raw, nullJSON), nil
}

// ReadAll returns the immediate children of path ordered by key. Push keys
// sort chronologically, so key order is insertion order.
func (s *FirebaseStore) ReadAll(ctx context.Context, path string) ([]Entry, error) {
	var children map[string]json.RawMessage
	if err := s.client.NewRef(path).Get(ctx, &children); err != nil {
		return nil, fmt.Errorf("reading children of %q: %w", path, err)
	}
	if len(children) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(children))
	for key := range children {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		var value map[string]any
		if err := json.Unmarshal(children[key], &value); err != nil {
			return nil, fmt.Errorf("decoding record %q/%q: %w", path, key, err)
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}
	return entries, nil
}

// Read decodes the value at path into dest.
func (s *FirebaseStore) Read(ctx context.Context, path string, dest any) (bool, error) {
	var raw json.RawMessage
	if err := s.client.NewRef(path).Get(ctx, &raw); err != nil {
		return false, fmt.Errorf("reading %q: %w", path, err)
	}
	if len(raw) == 0 || bytes.Equal(raw, nullJSON) {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decoding %q: %w", path, err)
	}
	return true, nil
}

// Write stores value at path, replacing any previous value.
func (s *FirebaseStore) Write(ctx context.Context, path string, value any) error {
	if err := s.client.NewRef(path).Set(ctx, value); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}
