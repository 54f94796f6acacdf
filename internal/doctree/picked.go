package doctree

import (
	"sort"
	"sync"
)

// Picked tracks which nodes a user chose for quiz generation. It lives beside
// the Index; nodes themselves carry no selection state.
type Picked struct {
	mu    sync.Mutex
	paths map[string]bool
}

func NewPicked() *Picked {
	return &Picked{paths: make(map[string]bool)}
}

// Toggle flips a path and reports whether it is now picked.
func (p *Picked) Toggle(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paths[path] {
		delete(p.paths, path)
		return false
	}
	p.paths[path] = true
	return true
}

func (p *Picked) Pick(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths[path] = true
}

func (p *Picked) Unpick(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.paths, path)
}

func (p *Picked) IsPicked(path string) bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paths[path]
}

// Clear drops every pick.
func (p *Picked) Clear() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = make(map[string]bool)
}

// Paths returns the picked paths, sorted.
func (p *Picked) Paths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.paths))
	for path := range p.paths {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}
