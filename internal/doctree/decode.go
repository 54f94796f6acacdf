package doctree

import (
	"encoding/json"
	"fmt"
	"io"
)

// Wire shape of a hierarchy-extraction response:
//
//	{"chapters":[{"title","pageNumber","position":{"top","left"},
//	  "topics":[{"name","pageNumber","position","subTopics":[...]}]}]}
type wireResponse struct {
	Chapters []wireChapter `json:"chapters"`
}

type wireChapter struct {
	Title      string      `json:"title"`
	PageNumber int         `json:"pageNumber"`
	Position   Position    `json:"position"`
	Topics     []wireTopic `json:"topics"`
}

type wireTopic struct {
	Name       string      `json:"name"`
	PageNumber int         `json:"pageNumber"`
	Position   Position    `json:"position"`
	SubTopics  []wireTopic `json:"subTopics"`
}

// DecodeChapters parses a hierarchy-extraction response into chapter nodes.
func DecodeChapters(r io.Reader) ([]Node, error) {
	var resp wireResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode chapters: %w", err)
	}
	chapters := make([]Node, 0, len(resp.Chapters))
	for _, ch := range resp.Chapters {
		chapters = append(chapters, Node{
			Kind:       KindChapter,
			Title:      ch.Title,
			PageNumber: ch.PageNumber,
			Position:   ch.Position,
			Children:   topicsToNodes(ch.Topics, KindTopic),
		})
	}
	return chapters, nil
}

func topicsToNodes(topics []wireTopic, kind Kind) []Node {
	if len(topics) == 0 {
		return nil
	}
	out := make([]Node, 0, len(topics))
	for _, t := range topics {
		n := Node{
			Kind:       kind,
			Title:      t.Name,
			PageNumber: t.PageNumber,
			Position:   t.Position,
		}
		// Sub-topics nested under sub-topics are kept so Build can reject them.
		n.Children = topicsToNodes(t.SubTopics, KindSubTopic)
		out = append(out, n)
	}
	return out
}
