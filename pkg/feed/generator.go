package feed

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/umputun/feedsync/pkg/domain"
)

// RSS is the root of an RSS 2.0 document
type RSS struct {
	XMLName xml.Name    `xml:"rss"`
	Version string      `xml:"version,attr"`
	Atom    string      `xml:"xmlns:atom,attr"`
	Channel *RSSChannel `xml:"channel"`
}

// RSSChannel is the channel of an RSS document
type RSSChannel struct {
	Title         string     `xml:"title"`
	Link          string     `xml:"link"`
	Description   string     `xml:"description"`
	AtomLink      *AtomLink  `xml:"atom:link"`
	LastBuildDate string     `xml:"lastBuildDate"`
	Items         []*RSSItem `xml:"item"`
}

// AtomLink is the self link of the channel
type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// RSSItem is one article of the channel
type RSSItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	GUID        string   `xml:"guid"`
	Description string   `xml:"description"`
	Author      string   `xml:"author,omitempty"`
	PubDate     string   `xml:"pubDate"`
	Categories  []string `xml:"category,omitempty"`
}

// Outline is a feed entry of an OPML document
type Outline struct {
	Title   string
	XMLURL  string
	HTMLURL string
}

// OutlineFolder is a named group of feeds in an OPML document
type OutlineFolder struct {
	Name  string
	Feeds []Outline
}

// Generator creates RSS and OPML documents from stored articles and subscriptions
type Generator struct {
	baseURL string
}

// NewGenerator creates a new feed generator
func NewGenerator(baseURL string) *Generator {
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// GenerateRSS creates an RSS 2.0 feed from articles, selfPath is relative to the base url
func (g *Generator) GenerateRSS(title, selfPath string, articles []domain.Article) (string, error) {
	rssItems := make([]*RSSItem, 0, len(articles))
	for _, art := range articles {
		rssItems = append(rssItems, g.convertToRSSItem(art))
	}

	feed := &RSS{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: &RSSChannel{
			Title:         title,
			Link:          g.baseURL + "/",
			Description:   fmt.Sprintf("%s, %d articles", title, len(articles)),
			AtomLink:      &AtomLink{Href: g.baseURL + selfPath, Rel: "self", Type: "application/rss+xml"},
			LastBuildDate: time.Now().Format(time.RFC1123Z),
			Items:         rssItems,
		},
	}

	output, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal RSS: %w", err)
	}
	return xml.Header + string(output), nil
}

func (g *Generator) convertToRSSItem(art domain.Article) *RSSItem {
	desc := art.ContentHTML
	if desc == "" {
		desc = art.Summary
	}
	if desc == "" {
		desc = art.ContentText
	}
	link := art.URL
	if link == "" {
		link = art.ExternalURL
	}

	return &RSSItem{
		Title:       art.Title,
		Link:        link,
		GUID:        art.ArticleID,
		Description: desc,
		Author:      strings.Join(art.Authors, ", "),
		PubDate:     art.Date().Format(time.RFC1123Z),
		Categories:  art.Tags,
	}
}

// GenerateOPML creates an OPML file with subscriptions, top level feeds first, then folders
func (g *Generator) GenerateOPML(title string, feeds []Outline, folders []OutlineFolder) (string, error) {
	type outline struct {
		XMLName  xml.Name  `xml:"outline"`
		Text     string    `xml:"text,attr"`
		Title    string    `xml:"title,attr"`
		Type     string    `xml:"type,attr,omitempty"`
		XMLUrl   string    `xml:"xmlUrl,attr,omitempty"`
		HTMLUrl  string    `xml:"htmlUrl,attr,omitempty"`
		Children []outline `xml:"outline"`
	}

	type body struct {
		XMLName  xml.Name  `xml:"body"`
		Outlines []outline `xml:"outline"`
	}

	type head struct {
		XMLName     xml.Name `xml:"head"`
		Title       string   `xml:"title"`
		DateCreated string   `xml:"dateCreated"`
	}

	type opml struct {
		XMLName xml.Name `xml:"opml"`
		Version string   `xml:"version,attr"`
		Head    head     `xml:"head"`
		Body    body     `xml:"body"`
	}

	toOutlines := func(feeds []Outline) []outline {
		res := make([]outline, 0, len(feeds))
		for _, f := range feeds {
			res = append(res, outline{Text: f.Title, Title: f.Title, Type: "rss", XMLUrl: f.XMLURL, HTMLUrl: f.HTMLURL})
		}
		return res
	}

	outlines := toOutlines(feeds)
	for _, folder := range folders {
		outlines = append(outlines, outline{Text: folder.Name, Title: folder.Name, Children: toOutlines(folder.Feeds)})
	}

	doc := opml{
		Version: "1.1",
		Head: head{
			Title:       title,
			DateCreated: time.Now().Format(time.RFC1123Z),
		},
		Body: body{
			Outlines: outlines,
		},
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal OPML: %w", err)
	}
	return xml.Header + string(output), nil
}
