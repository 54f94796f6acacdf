package doctree

import (
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
)

const selectionCacheSize = 512

// Selection is the per-page view of the hierarchy. Each list holds only the
// nodes whose own page number matched the query.
type Selection struct {
	PageNumber int   `json:"page_number"`
	Chapters   []Ref `json:"chapters"`
	Topics     []Ref `json:"topics"`
	SubTopics  []Ref `json:"sub_topics"`
}

// Len returns the number of nodes in the selection.
func (s Selection) Len() int {
	return len(s.Chapters) + len(s.Topics) + len(s.SubTopics)
}

func (s Selection) clone() Selection {
	return Selection{
		PageNumber: s.PageNumber,
		Chapters:   append([]Ref{}, s.Chapters...),
		Topics:     append([]Ref{}, s.Topics...),
		SubTopics:  append([]Ref{}, s.SubTopics...),
	}
}

// Index is an immutable hierarchy with page-based lookup.
type Index struct {
	chapters []Node
	refs     []Ref
	byPath   map[string]int
	pages    []int
	memo     *lru.Cache[int, Selection]
}

// Build validates the chapter tree and indexes it. Kinds are assigned from
// depth. When pageCount is positive every node must sit on a page in
// 1..pageCount. The input slice is copied, never modified.
func Build(chapters []Node, pageCount int) (*Index, error) {
	memo, err := lru.New[int, Selection](selectionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create selection cache: %w", err)
	}
	idx := &Index{
		chapters: make([]Node, len(chapters)),
		byPath:   make(map[string]int),
		memo:     memo,
	}
	for i, ch := range chapters {
		idx.chapters[i] = ch.clone()
	}

	seen := make(map[int]bool)
	var walk func(nodes []Node, parent string, depth int) error
	walk = func(nodes []Node, parent string, depth int) error {
		kind, ok := kindAt(depth)
		if !ok {
			return fmt.Errorf("node %q nested too deep (max chapter > topic > sub-topic)", parent)
		}
		for i := range nodes {
			n := &nodes[i]
			path := childPath(parent, i)
			if n.PageNumber < 1 {
				return fmt.Errorf("node %s %q: page number %d must be >= 1", path, n.Title, n.PageNumber)
			}
			if pageCount > 0 && n.PageNumber > pageCount {
				return fmt.Errorf("node %s %q: page %d not in document (%d pages)", path, n.Title, n.PageNumber, pageCount)
			}
			n.Kind = kind
			idx.byPath[path] = len(idx.refs)
			idx.refs = append(idx.refs, Ref{
				Path:       path,
				Kind:       kind,
				Title:      n.Title,
				PageNumber: n.PageNumber,
				Position:   n.Position,
				Children:   len(n.Children),
			})
			if !seen[n.PageNumber] {
				seen[n.PageNumber] = true
				idx.pages = append(idx.pages, n.PageNumber)
			}
			if len(n.Children) > 0 {
				if err := walk(n.Children, path, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(idx.chapters, "", 0); err != nil {
		return nil, err
	}
	sort.Ints(idx.pages)
	return idx, nil
}

// Chapters returns a deep copy of the indexed tree.
func (idx *Index) Chapters() []Node {
	out := make([]Node, len(idx.chapters))
	for i, ch := range idx.chapters {
		out[i] = ch.clone()
	}
	return out
}

// Nodes returns every node in pre-order.
func (idx *Index) Nodes() []Ref {
	return append([]Ref{}, idx.refs...)
}

// Lookup finds a node by its index path.
func (idx *Index) Lookup(path string) (Ref, bool) {
	i, ok := idx.byPath[path]
	if !ok {
		return Ref{}, false
	}
	return idx.refs[i], true
}

// PagesWithContent lists every distinct page referenced by any node, ascending.
func (idx *Index) PagesWithContent() []int {
	return append([]int{}, idx.pages...)
}

// SelectByPage returns the nodes anchored on page p. Ancestors on other pages
// are not included.
func (idx *Index) SelectByPage(p int) Selection {
	if sel, ok := idx.memo.Get(p); ok {
		return sel.clone()
	}
	sel := Selection{PageNumber: p, Chapters: []Ref{}, Topics: []Ref{}, SubTopics: []Ref{}}
	for _, r := range idx.refs {
		if r.PageNumber != p {
			continue
		}
		switch r.Kind {
		case KindChapter:
			sel.Chapters = append(sel.Chapters, r)
		case KindTopic:
			sel.Topics = append(sel.Topics, r)
		case KindSubTopic:
			sel.SubTopics = append(sel.SubTopics, r)
		}
	}
	idx.memo.Add(p, sel)
	return sel.clone()
}

// Resolve returns the refs for every picked path that exists in the index,
// in pre-order.
func (idx *Index) Resolve(p *Picked) []Ref {
	var out []Ref
	for _, r := range idx.refs {
		if p.IsPicked(r.Path) {
			out = append(out, r)
		}
	}
	return out
}
