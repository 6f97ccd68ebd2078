package workspace

import (
	"sync"
	"time"
	"unicode/utf8"
)

const DefaultPreviewChars = 4000

// Document is an uploaded file as seen by the prompt builder.
type Document struct {
	Name      string
	Preview   string
	Active    bool
	UpdatedAt time.Time
}

// Registry tracks which files are part of the current workspace and keeps a
// bounded text preview of each. Names are unique; uploads keep their first
// position when re-uploaded.
type Registry struct {
	mu           sync.RWMutex
	order        []string
	docs         map[string]*Document
	previewChars int
}

func NewRegistry(previewChars int) *Registry {
	if previewChars <= 0 {
		previewChars = DefaultPreviewChars
	}
	return &Registry{
		docs:         make(map[string]*Document),
		previewChars: previewChars,
	}
}

// Upsert records name as active and replaces its preview.
func (r *Registry) Upsert(name, text string) Document {
	preview := truncateRunes(text, r.previewChars)

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[name]
	if !ok {
		doc = &Document{Name: name}
		r.docs[name] = doc
		r.order = append(r.order, name)
	}
	doc.Preview = preview
	doc.Active = true
	doc.UpdatedAt = time.Now()
	return *doc
}

// ActiveFiles returns file names in upload order.
func (r *Registry) ActiveFiles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.docs[name].Active {
			names = append(names, name)
		}
	}
	return names
}

// Documents returns a snapshot of every tracked document in upload order.
func (r *Registry) Documents() []Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Document, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.docs[name])
	}
	return out
}

// Previews returns a copy of name -> preview for active documents.
func (r *Registry) Previews() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.docs))
	for name, doc := range r.docs {
		if doc.Active {
			out[name] = doc.Preview
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Clear forgets every document. Safe to call repeatedly.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.docs = make(map[string]*Document)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
