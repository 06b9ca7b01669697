package presentation

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

const listItemClass = "product-list-item"

type Kind int

const (
	KindPlain Kind = iota
	KindList
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindVideo:
		return "video"
	default:
		return "plain"
	}
}

// Classification says how a slide advances.
type Classification struct {
	Kind  Kind
	Items int
}

// Classify scans slide markup for a <video> element or list items. A slide
// with both is treated as a video.
func Classify(slide model.Slide) Classification {
	z := html.NewTokenizer(strings.NewReader(string(slide)))
	items := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if items > 0 {
				return Classification{Kind: KindList, Items: items}
			}
			return Classification{Kind: KindPlain}
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data == "video" {
				return Classification{Kind: KindVideo}
			}
			if hasClass(tok, listItemClass) {
				items++
			}
		}
	}
}

func hasClass(tok html.Token, class string) bool {
	for _, attr := range tok.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
