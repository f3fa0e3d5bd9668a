package board

import (
	"context"
	"fmt"
)

// KeyedCollection is the storage surface for a document type that carries an
// allocated integer key alongside its store-assigned id.
type KeyedCollection[D any] interface {
	// Insert writes a new document and returns its store-assigned id
	Insert(ctx context.Context, doc *D) (string, error)
	// FindByKey returns the first document whose key equals key and whose
	// state matches; an empty state matches any
	FindByKey(ctx context.Context, key int64, state DeletionState) (*D, error)
}

// KeyedRef identifies a document created by KeyedRepository.
type KeyedRef struct {
	DocumentID string
	Key        int64
}

// KeyedRepository creates documents keyed by values from a named sequence.
type KeyedRepository[D any] struct {
	sequence   string
	allocator  *Allocator
	collection KeyedCollection[D]
	assign     func(doc *D, key int64)
}

// NewKeyedRepository binds a collection to the sequence that keys it. assign
// stores the allocated key in the document's key field.
func NewKeyedRepository[D any](sequence string, allocator *Allocator, collection KeyedCollection[D], assign func(doc *D, key int64)) *KeyedRepository[D] {
	return &KeyedRepository[D]{
		sequence:   sequence,
		allocator:  allocator,
		collection: collection,
		assign:     assign,
	}
}

// CreateWithGeneratedKey allocates the next key, stores it on doc and inserts
// doc. Nothing is written when allocation fails. When the insert fails the key
// stays consumed.
func (r *KeyedRepository[D]) CreateWithGeneratedKey(ctx context.Context, doc *D) (KeyedRef, error) {
	key, err := r.allocator.Next(ctx, r.sequence)
	if err != nil {
		return KeyedRef{}, err
	}

	r.assign(doc, key)
	id, err := r.collection.Insert(ctx, doc)
	if err != nil {
		return KeyedRef{}, fmt.Errorf("insert %s document with key %d: %w", r.sequence, key, err)
	}
	return KeyedRef{DocumentID: id, Key: key}, nil
}

// FindByKey looks a document up by its allocated key.
func (r *KeyedRepository[D]) FindByKey(ctx context.Context, key int64, state DeletionState) (*D, error) {
	return r.collection.FindByKey(ctx, key, state)
}

// contentCollection adapts a ContentStore to KeyedCollection.
type contentCollection struct {
	store ContentStore
}

// NewContentCollection exposes store as the keyed "contents" collection.
func NewContentCollection(store ContentStore) KeyedCollection[Content] {
	return contentCollection{store: store}
}

func (c contentCollection) Insert(ctx context.Context, doc *Content) (string, error) {
	if err := c.store.InsertContent(ctx, doc); err != nil {
		return "", err
	}
	return doc.DocumentID, nil
}

func (c contentCollection) FindByKey(ctx context.Context, key int64, state DeletionState) (*Content, error) {
	return c.store.FindContent(ctx, key, state)
}

func assignPostNumber(c *Content, key int64) {
	c.PostNumber = key
}
