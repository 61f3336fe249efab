package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SelectorKind says how Selector.Value is interpreted
type SelectorKind int

const (
	ByXPath SelectorKind = iota
	ByCSS
	ByName
)

func (k SelectorKind) String() string {
	switch k {
	case ByXPath:
		return "xpath"
	case ByCSS:
		return "css"
	case ByName:
		return "name"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Selector locates one element on the page
type Selector struct {
	Kind  SelectorKind
	Value string
}

func XPath(expr string) Selector { return Selector{Kind: ByXPath, Value: expr} }
func CSS(query string) Selector  { return Selector{Kind: ByCSS, Value: query} }
func Name(name string) Selector  { return Selector{Kind: ByName, Value: name} }

func (s Selector) String() string {
	return s.Kind.String() + "=" + s.Value
}

// expression returns a JavaScript expression evaluating to the first match or null.
func (s Selector) expression() string {
	switch s.Kind {
	case ByCSS:
		return fmt.Sprintf("document.querySelector(%s)", jsString(s.Value))
	case ByName:
		return fmt.Sprintf("(document.getElementsByName(%s)[0] || null)", jsString(s.Value))
	default:
		return fmt.Sprintf(
			"document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue",
			jsString(s.Value))
	}
}

// jsString quotes v as a JavaScript string literal.
func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// XPathLiteral quotes s for use inside an XPath 1.0 expression.
// XPath has no escape sequences, so a value holding both quote kinds is built with concat().
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	var b strings.Builder
	b.WriteString("concat(")
	for i, part := range strings.Split(s, "'") {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + part + "'")
	}
	b.WriteString(")")
	return b.String()
}
