package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrEmptyOPML is returned for a document without feeds and folders
var ErrEmptyOPML = errors.New("no subscriptions in opml")

// Subscriptions is the content of an OPML document: feeds outside of any folder, then folders
type Subscriptions struct {
	Feeds   []Outline
	Folders []OutlineFolder
}

// Count returns the number of feeds in all folders and outside of them
func (s Subscriptions) Count() int {
	res := len(s.Feeds)
	for _, f := range s.Folders {
		res += len(f.Feeds)
	}
	return res
}

type opmlOutline struct {
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	HTMLURL  string        `xml:"htmlUrl,attr"`
	Outlines []opmlOutline `xml:"outline"`
}

func (o opmlOutline) name() string {
	if t := strings.TrimSpace(o.Title); t != "" {
		return t
	}
	return strings.TrimSpace(o.Text)
}

func (o opmlOutline) feed() Outline {
	return Outline{Title: o.name(), XMLURL: strings.TrimSpace(o.XMLURL), HTMLURL: strings.TrimSpace(o.HTMLURL)}
}

// ParseOPML reads subscriptions from an OPML document. Accounts have one level of folders, so feeds of
// nested folders go to their top level folder. Folders with the same name are merged.
func ParseOPML(r io.Reader) (Subscriptions, error) {
	var doc struct {
		XMLName xml.Name `xml:"opml"`
		Body    struct {
			Outlines []opmlOutline `xml:"outline"`
		} `xml:"body"`
	}
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&doc); err != nil {
		return Subscriptions{}, fmt.Errorf("decode opml: %w", err)
	}

	var collect func(outlines []opmlOutline) []Outline
	collect = func(outlines []opmlOutline) []Outline {
		var res []Outline
		for _, o := range outlines {
			if strings.TrimSpace(o.XMLURL) != "" {
				res = append(res, o.feed())
				continue
			}
			res = append(res, collect(o.Outlines)...)
		}
		return res
	}

	var res Subscriptions
	folders := make(map[string]int)
	for _, o := range doc.Body.Outlines {
		if strings.TrimSpace(o.XMLURL) != "" {
			res.Feeds = append(res.Feeds, o.feed())
			continue
		}
		name, feeds := o.name(), collect(o.Outlines)
		if name == "" {
			res.Feeds = append(res.Feeds, feeds...)
			continue
		}
		if i, ok := folders[name]; ok {
			res.Folders[i].Feeds = append(res.Folders[i].Feeds, feeds...)
			continue
		}
		folders[name] = len(res.Folders)
		res.Folders = append(res.Folders, OutlineFolder{Name: name, Feeds: feeds})
	}

	if len(res.Feeds) == 0 && len(res.Folders) == 0 {
		return Subscriptions{}, ErrEmptyOPML
	}
	return res, nil
}
