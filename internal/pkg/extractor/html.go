package extractor

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrNoHTMLStart = errors.New("could not find html start tag")
	ErrNoHTMLEnd   = errors.New("could not find html end tag")
	ErrEmptyInput  = errors.New("response is empty")
)

var (
	leadingHTMLFence = regexp.MustCompile("(?i)^```html\\s*")
	leadingFence     = regexp.MustCompile("^```\\s*")
	trailingFence    = regexp.MustCompile("\\s*```$")
	fenceLine        = regexp.MustCompile("(?m)^[ \\t]*```[a-zA-Z]*[ \\t]*\\r?\\n?")
	doctypeTag       = regexp.MustCompile(`(?i)<!DOCTYPE\s+html[^>]*>`)
	htmlOpenTag      = regexp.MustCompile(`(?i)<html[^>]*>`)
	htmlCloseTag     = regexp.MustCompile(`(?i)</html>`)
)

// HTML extracts the document from <!DOCTYPE html> (or <html>) to </html> inclusive,
// dropping markdown fences and any prose around it.
func HTML(response string) (string, error) {
	text := strings.TrimSpace(response)
	if text == "" {
		return "", ErrEmptyInput
	}

	text = leadingHTMLFence.ReplaceAllString(text, "")
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")

	var start []int
	doctype := doctypeTag.FindStringIndex(text)
	htmlOpen := htmlOpenTag.FindStringIndex(text)
	switch {
	case doctype != nil:
		start = doctype
	case htmlOpen != nil:
		start = htmlOpen
	default:
		return "", ErrNoHTMLStart
	}

	end := htmlCloseTag.FindStringIndex(text[start[0]:])
	if end == nil {
		return "", ErrNoHTMLEnd
	}

	doc := text[start[0] : start[0]+end[1]]
	doc = fenceLine.ReplaceAllString(doc, "")

	if doctype != nil && htmlOpen == nil {
		tag := text[doctype[0]:doctype[1]]
		doc = tag + "\n<html>\n" + doc[len(tag):]
	}

	return strings.TrimSpace(doc), nil
}

// IsHTML reports whether s has both an opening and a closing html tag.
func IsHTML(s string) bool {
	return htmlOpenTag.MatchString(s) && htmlCloseTag.MatchString(s)
}
