package feed

import (
	"encoding/xml"
	"os"

	"github.com/pkg/errors"
)

type opmlDoc struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Body    opmlBody `xml:"body"`
}

type opmlBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	Text     string        `xml:"text,attr"`
	Type     string        `xml:"type,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	Children []opmlOutline `xml:"outline"`
}

// Source is a single subscription pulled out of an OPML document
type Source struct {
	Name string
	URL  string
}

// ParseOPML reads podcast subscriptions from an OPML file. Nested outline
// groups are flattened, outlines without an xmlUrl are ignored.
func ParseOPML(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read OPML file %q", path)
	}

	doc := opmlDoc{}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "failed to parse OPML file %q", path)
	}

	var sources []Source
	collectOutlines(doc.Body.Outlines, &sources)
	return sources, nil
}

func collectOutlines(outlines []opmlOutline, out *[]Source) {
	for _, o := range outlines {
		if o.XMLURL != "" {
			*out = append(*out, Source{Name: o.Text, URL: o.XMLURL})
		}
		collectOutlines(o.Children, out)
	}
}
