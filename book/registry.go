package book

import (
	"sort"
	"sync"
)

// Registry holds open books by id.
type Registry struct {
	mu    sync.RWMutex
	books map[BookID]*Book
}

func NewRegistry() *Registry {
	return &Registry{books: make(map[BookID]*Book)}
}

// Add registers b. Fails if the id is taken.
func (r *Registry) Add(b *Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.books[b.ID()]; exists {
		return ErrBookExists
	}
	r.books[b.ID()] = b
	return nil
}

func (r *Registry) Get(id BookID) (*Book, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[id]
	if !ok {
		return nil, ErrBookNotFound
	}
	return b, nil
}

// List returns all books ordered by id.
func (r *Registry) List() []*Book {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Book, 0, len(r.books))
	for _, b := range r.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Reset drops every book.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books = make(map[BookID]*Book)
}
