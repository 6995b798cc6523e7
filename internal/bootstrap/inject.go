package bootstrap

import (
	"errors"
	"html"
	"io"
	"sort"
	"strings"

	gohtml "golang.org/x/net/html"

	"github.com/cryguy/monacoworkers/internal/core"
)

// landmarks are the byte offsets of the document structure tags are placed
// around. -1 means the tag was not seen.
type landmarks struct {
	doctypeEnd   int
	htmlOpenEnd  int
	htmlClose    int
	headOpenEnd  int
	headClose    int
	bodyOpenEnd  int
	bodyClose    int
	headSelfShut bool
}

func scan(doc string) (landmarks, error) {
	lm := landmarks{doctypeEnd: -1, htmlOpenEnd: -1, htmlClose: -1, headOpenEnd: -1, headClose: -1, bodyOpenEnd: -1, bodyClose: -1}
	z := gohtml.NewTokenizer(strings.NewReader(doc))
	offset := 0
	for {
		tt := z.Next()
		if tt == gohtml.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				return lm, nil
			}
			return lm, z.Err()
		}
		start := offset
		offset += len(z.Raw())

		name, _ := z.TagName()
		switch tt {
		case gohtml.DoctypeToken:
			if lm.doctypeEnd < 0 {
				lm.doctypeEnd = offset
			}
		case gohtml.StartTagToken, gohtml.SelfClosingTagToken:
			switch string(name) {
			case "html":
				if lm.htmlOpenEnd < 0 {
					lm.htmlOpenEnd = offset
				}
			case "head":
				if lm.headOpenEnd < 0 {
					lm.headOpenEnd = offset
					lm.headSelfShut = tt == gohtml.SelfClosingTagToken
				}
			case "body":
				if lm.bodyOpenEnd < 0 {
					lm.bodyOpenEnd = offset
				}
			}
		case gohtml.EndTagToken:
			switch string(name) {
			case "html":
				lm.htmlClose = start
			case "head":
				if lm.headClose < 0 {
					lm.headClose = start
				}
			case "body":
				lm.bodyClose = start
			}
		}
	}
}

type insertion struct {
	at   int
	seq  int
	text string
}

// Inject places each descriptor into doc according to its InjectTo. A
// missing <head> is created after <html> (or the doctype, or at the top);
// body positions without a <body> fall back to the end of the document.
func Inject(doc string, tags []core.TagDescriptor) (string, error) {
	if len(tags) == 0 {
		return doc, nil
	}
	lm, err := scan(doc)
	if err != nil {
		return "", err
	}

	var (
		ins                   []insertion
		headPrepend, headTail strings.Builder
	)
	add := func(at int, text string) {
		ins = append(ins, insertion{at: at, seq: len(ins), text: text})
	}
	end := len(doc)
	if lm.htmlClose >= 0 {
		end = lm.htmlClose
	}

	for _, t := range tags {
		el := render(t)
		switch t.InjectTo {
		case core.InjectHeadPrepend:
			headPrepend.WriteString(el)
		case core.InjectHead:
			headTail.WriteString(el)
		case core.InjectBodyPrepend:
			switch {
			case lm.bodyOpenEnd >= 0:
				add(lm.bodyOpenEnd, el)
			case lm.headClose >= 0:
				add(lm.headClose+len("</head>"), el)
			default:
				add(end, el)
			}
		default:
			switch {
			case lm.bodyClose >= 0:
				add(lm.bodyClose, el)
			default:
				add(end, el)
			}
		}
	}

	if headPrepend.Len() > 0 || headTail.Len() > 0 {
		switch {
		case lm.headOpenEnd >= 0 && !lm.headSelfShut && lm.headClose >= 0:
			add(lm.headOpenEnd, headPrepend.String())
			add(lm.headClose, headTail.String())
		case lm.headOpenEnd >= 0 && !lm.headSelfShut:
			// An unclosed <head> ends wherever the body starts.
			add(lm.headOpenEnd, headPrepend.String()+headTail.String())
		default:
			at := 0
			if lm.htmlOpenEnd >= 0 {
				at = lm.htmlOpenEnd
			} else if lm.doctypeEnd >= 0 {
				at = lm.doctypeEnd
			}
			add(at, "<head>"+headPrepend.String()+headTail.String()+"</head>")
		}
	}

	sort.SliceStable(ins, func(i, j int) bool {
		if ins[i].at != ins[j].at {
			return ins[i].at < ins[j].at
		}
		return ins[i].seq < ins[j].seq
	})

	var out strings.Builder
	out.Grow(len(doc) + 256)
	prev := 0
	for _, in := range ins {
		out.WriteString(doc[prev:in.at])
		out.WriteString(in.text)
		prev = in.at
	}
	out.WriteString(doc[prev:])
	return out.String(), nil
}

// render serializes a descriptor. Children are written raw since the only
// producer is the bootstrap script, whose data is already HTML-safe.
func render(t core.TagDescriptor) string {
	var b strings.Builder
	b.WriteString("<" + t.Tag)
	keys := make([]string, 0, len(t.Attrs))
	for k := range t.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" " + k)
		if v := t.Attrs[k]; v != "" {
			b.WriteString(`="` + html.EscapeString(v) + `"`)
		}
	}
	b.WriteString(">")
	if voidElement(t.Tag) {
		return b.String()
	}
	b.WriteString(t.Children)
	b.WriteString("</" + t.Tag + ">")
	return b.String()
}

func voidElement(tag string) bool {
	switch tag {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "source", "track", "wbr":
		return true
	}
	return false
}
