package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

var ErrNotFound = errors.New("document not found")

// Query narrows and orders a collection scan. Filters are equality matches
// on top-level document fields.
type Query struct {
	Filters    map[string]string
	OrderBy    string
	Descending bool
	Limit      int
}

// Store is the document store boundary: schemaless JSON records grouped
// into named collections. Backends: in-memory, PostgreSQL, DynamoDB.
type Store interface {
	// Create persists a new document under a generated id and returns it.
	Create(ctx context.Context, collection string, doc any) (string, error)

	// Set upserts a document under a caller-chosen id.
	Set(ctx context.Context, collection, id string, doc any) error

	// Get decodes the document into out, or returns ErrNotFound.
	Get(ctx context.Context, collection, id string, out any) error

	// Query decodes matching documents into out (a pointer to a slice).
	Query(ctx context.Context, collection string, q Query, out any) error

	// Update merges the given top-level fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document. Deleting a missing document is a no-op.
	Delete(ctx context.Context, collection, id string) error
}

// encodeDoc converts an arbitrary document into its generic map form.
func encodeDoc(doc any) (map[string]any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("document is not a JSON object: %w", err)
	}
	return m, nil
}

// decodeInto converts a generic map form back into a typed document.
func decodeInto(m map[string]any, out any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func decodeSlice(docs []map[string]any, out any) error {
	data, err := json.Marshal(docs)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func matchesFilters(m map[string]any, filters map[string]string) bool {
	for field, want := range filters {
		got, ok := m[field]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != want {
			return false
		}
	}
	return true
}

// sortDocs orders documents by a top-level field. Numbers compare
// numerically, everything else by string representation (RFC 3339
// timestamps order correctly this way).
func sortDocs(docs []map[string]any, orderBy string, descending bool) {
	if orderBy == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		less := lessValue(docs[i][orderBy], docs[j][orderBy])
		if descending {
			return !less && !equalValue(docs[i][orderBy], docs[j][orderBy])
		}
		return less
	})
}

func lessValue(a, b any) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		// RFC 3339 strings with sub-second precision do not sort
		// lexically, so compare timestamps as timestamps.
		at, aerr := time.Parse(time.RFC3339Nano, as)
		bt, berr := time.Parse(time.RFC3339Nano, bs)
		if aerr == nil && berr == nil {
			return at.Before(bt)
		}
	}
	return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
}

func equalValue(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
