package arxiv

import "encoding/xml"

// Feed represents the Atom XML response from the arXiv API.
type Feed struct {
	XMLName xml.Name `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []Entry  `xml:"entry"`
}

// Entry represents a single arXiv paper in the Atom feed. Required elements are
// pointers so that a missing element can be told apart from an empty one.
type Entry struct {
	ID        *string `xml:"id"` // "http://arxiv.org/abs/2301.12345v1"
	Title     *string `xml:"title"`
	Summary   *string `xml:"summary"`   // abstract
	Published *string `xml:"published"` // "2023-01-15T18:30:00Z"
}
