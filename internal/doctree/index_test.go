package doctree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() []Node {
	return []Node{
		{
			Title:      "Cells",
			PageNumber: 3,
			Children: []Node{
				{Title: "Organelles", PageNumber: 3, Children: []Node{
					{Title: "Mitochondria", PageNumber: 4},
					{Title: "Ribosomes", PageNumber: 5},
				}},
				{Title: "Membranes", PageNumber: 5},
			},
		},
		{
			Title:      "Genetics",
			PageNumber: 7,
			Children: []Node{
				{Title: "DNA", PageNumber: 7},
			},
		},
	}
}

func TestBuild_AssignsKindsByDepth(t *testing.T) {
	idx, err := Build(sampleTree(), 10)
	require.NoError(t, err)

	ref, ok := idx.Lookup("0")
	require.True(t, ok)
	assert.Equal(t, KindChapter, ref.Kind)
	assert.Equal(t, 2, ref.Children)

	ref, ok = idx.Lookup("0/0")
	require.True(t, ok)
	assert.Equal(t, KindTopic, ref.Kind)

	ref, ok = idx.Lookup("0/0/1")
	require.True(t, ok)
	assert.Equal(t, KindSubTopic, ref.Kind)
	assert.Equal(t, "Ribosomes", ref.Title)

	_, ok = idx.Lookup("9")
	assert.False(t, ok)
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	in := sampleTree()
	_, err := Build(in, 0)
	require.NoError(t, err)
	assert.Equal(t, Kind(""), in[0].Kind)
	assert.Equal(t, Kind(""), in[0].Children[0].Kind)
}

func TestBuild_RejectsPageOutsideDocument(t *testing.T) {
	_, err := Build(sampleTree(), 6)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Genetics")
}

func TestBuild_RejectsNonPositivePage(t *testing.T) {
	_, err := Build([]Node{{Title: "Intro", PageNumber: 0}}, 0)
	require.Error(t, err)
}

func TestBuild_RejectsFourthLevel(t *testing.T) {
	tree := []Node{{Title: "A", PageNumber: 1, Children: []Node{
		{Title: "B", PageNumber: 1, Children: []Node{
			{Title: "C", PageNumber: 1, Children: []Node{
				{Title: "D", PageNumber: 1},
			}},
		}},
	}}}
	_, err := Build(tree, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too deep")
}

func TestPagesWithContent_SortedAndUnique(t *testing.T) {
	idx, err := Build(sampleTree(), 0)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5, 7}, idx.PagesWithContent())
}

func TestPagesWithContent_Empty(t *testing.T) {
	idx, err := Build(nil, 0)
	require.NoError(t, err)
	assert.Empty(t, idx.PagesWithContent())
	assert.Equal(t, 0, idx.SelectByPage(1).Len())
}

func TestSelectByPage_OwnPageOnly(t *testing.T) {
	idx, err := Build(sampleTree(), 0)
	require.NoError(t, err)

	sel := idx.SelectByPage(5)
	assert.Empty(t, sel.Chapters, "chapter on page 3 must not be inherited")
	require.Len(t, sel.Topics, 1)
	assert.Equal(t, "Membranes", sel.Topics[0].Title)
	require.Len(t, sel.SubTopics, 1)
	assert.Equal(t, "Ribosomes", sel.SubTopics[0].Title)

	sel = idx.SelectByPage(3)
	require.Len(t, sel.Chapters, 1)
	assert.Equal(t, "Cells", sel.Chapters[0].Title)
	require.Len(t, sel.Topics, 1)
	assert.Empty(t, sel.SubTopics)
}

func TestSelectByPage_UnionCoversAllNodesOnce(t *testing.T) {
	idx, err := Build(sampleTree(), 0)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, p := range idx.PagesWithContent() {
		sel := idx.SelectByPage(p)
		for _, list := range [][]Ref{sel.Chapters, sel.Topics, sel.SubTopics} {
			for _, r := range list {
				assert.Equal(t, p, r.PageNumber)
				seen[r.Path]++
			}
		}
	}

	all := idx.Nodes()
	assert.Len(t, seen, len(all))
	for _, r := range all {
		assert.Equal(t, 1, seen[r.Path], "node %s", r.Path)
	}
}

func TestSelectByPage_MemoizedResultIsolated(t *testing.T) {
	idx, err := Build(sampleTree(), 0)
	require.NoError(t, err)

	first := idx.SelectByPage(7)
	first.Chapters[0].Title = "changed"

	second := idx.SelectByPage(7)
	assert.Equal(t, "Genetics", second.Chapters[0].Title)
}

func TestPicked_ResolveAndToggle(t *testing.T) {
	idx, err := Build(sampleTree(), 0)
	require.NoError(t, err)

	p := NewPicked()
	assert.True(t, p.Toggle("0/1"))
	p.Pick("1")
	p.Pick("5/5")
	assert.Equal(t, []string{"0/1", "1", "5/5"}, p.Paths())

	refs := idx.Resolve(p)
	require.Len(t, refs, 2)
	assert.Equal(t, "Membranes", refs[0].Title)
	assert.Equal(t, "Genetics", refs[1].Title)

	assert.False(t, p.Toggle("0/1"))
	p.Unpick("1")
	assert.Empty(t, idx.Resolve(p))

	p.Clear()
	assert.Empty(t, p.Paths())
}

func TestDecodeChapters(t *testing.T) {
	body := `{"chapters":[{"title":"Cells","pageNumber":2,"position":{"top":40,"left":12},
		"topics":[{"name":"Organelles","pageNumber":2,"position":{"top":80,"left":12},
		"subTopics":[{"name":"Golgi","pageNumber":3,"position":{"top":10,"left":20}}]}]}]}`

	chapters, err := DecodeChapters(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	assert.Equal(t, "Cells", chapters[0].Title)
	assert.Equal(t, Position{Top: 40, Left: 12}, chapters[0].Position)
	require.Len(t, chapters[0].Children, 1)
	assert.Equal(t, "Organelles", chapters[0].Children[0].Title)
	require.Len(t, chapters[0].Children[0].Children, 1)
	assert.True(t, chapters[0].Children[0].Children[0].IsLeaf())

	idx, err := Build(chapters, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, idx.PagesWithContent())
}

func TestDecodeChapters_Malformed(t *testing.T) {
	_, err := DecodeChapters(strings.NewReader(`{"chapters":`))
	require.Error(t, err)
}
