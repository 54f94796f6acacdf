package doctree

import "strconv"

// Kind identifies a node's level in the chapter hierarchy.
type Kind string

const (
	KindChapter  Kind = "chapter"
	KindTopic    Kind = "topic"
	KindSubTopic Kind = "sub_topic"
)

// kindAt maps tree depth to node kind. Depth beyond sub-topics is invalid.
func kindAt(depth int) (Kind, bool) {
	switch depth {
	case 0:
		return KindChapter, true
	case 1:
		return KindTopic, true
	case 2:
		return KindSubTopic, true
	}
	return "", false
}

// Position is a node's anchor on its page.
type Position struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// Node is a chapter, topic or sub-topic. Parents own their children by value.
type Node struct {
	Kind       Kind     `json:"kind"`
	Title      string   `json:"title"`
	PageNumber int      `json:"page_number"`
	Position   Position `json:"position"`
	Children   []Node   `json:"children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool { return len(n.Children) == 0 }

func (n Node) clone() Node {
	out := n
	if len(n.Children) > 0 {
		out.Children = make([]Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.clone()
		}
	}
	return out
}

// Ref is a flat view of one node, addressed by its index path
// ("2", "2/0", "2/0/3").
type Ref struct {
	Path       string   `json:"path"`
	Kind       Kind     `json:"kind"`
	Title      string   `json:"title"`
	PageNumber int      `json:"page_number"`
	Position   Position `json:"position"`
	Children   int      `json:"children"`
}

func childPath(parent string, i int) string {
	if parent == "" {
		return strconv.Itoa(i)
	}
	return parent + "/" + strconv.Itoa(i)
}
