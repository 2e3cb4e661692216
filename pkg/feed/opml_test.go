package feed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOPML(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<opml version="2.0">
  <head><title>export</title></head>
  <body>
    <outline text="Top" type="rss" xmlUrl="https://top.com/rss" htmlUrl="https://top.com"/>
    <outline text="Tech" title="Tech">
      <outline text="A" title="Site A" type="rss" xmlUrl="https://a.com/rss"/>
      <outline text="Deep">
        <outline text="B" type="rss" xmlUrl=" https://b.com/atom "/>
      </outline>
    </outline>
    <outline text="Empty"/>
    <outline text="Tech">
      <outline text="C" type="rss" xmlUrl="https://c.com/feed"/>
    </outline>
  </body>
</opml>`

	subs, err := ParseOPML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []Outline{{Title: "Top", XMLURL: "https://top.com/rss", HTMLURL: "https://top.com"}}, subs.Feeds)
	require.Len(t, subs.Folders, 2)
	assert.Equal(t, OutlineFolder{Name: "Tech", Feeds: []Outline{
		{Title: "Site A", XMLURL: "https://a.com/rss"},
		{Title: "B", XMLURL: "https://b.com/atom"},
		{Title: "C", XMLURL: "https://c.com/feed"},
	}}, subs.Folders[0])
	assert.Equal(t, "Empty", subs.Folders[1].Name)
	assert.Empty(t, subs.Folders[1].Feeds)
	assert.Equal(t, 4, subs.Count())
}

func TestParseOPML_Errors(t *testing.T) {
	tbl := []struct {
		name, doc, err string
	}{
		{name: "not xml", doc: "hello", err: "decode opml"},
		{name: "not opml", doc: `<rss version="2.0"><channel></channel></rss>`, err: "decode opml"},
		{name: "empty body", doc: `<opml version="1.1"><head/><body></body></opml>`, err: ErrEmptyOPML.Error()},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOPML(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestParseOPML_GeneratedDocument(t *testing.T) {
	out, err := NewGenerator("http://localhost").GenerateOPML("subs",
		[]Outline{{Title: "Root feed", XMLURL: "https://r.com/rss"}},
		[]OutlineFolder{{Name: "News", Feeds: []Outline{{Title: "N", XMLURL: "https://n.com/rss", HTMLURL: "https://n.com"}}}})
	require.NoError(t, err)

	subs, err := ParseOPML(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, []Outline{{Title: "Root feed", XMLURL: "https://r.com/rss"}}, subs.Feeds)
	assert.Equal(t, []OutlineFolder{{Name: "News", Feeds: []Outline{{Title: "N", XMLURL: "https://n.com/rss", HTMLURL: "https://n.com"}}}},
		subs.Folders)
}
