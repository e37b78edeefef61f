package capture

import "strings"

type headerKind int

const (
	headerMissing headerKind = iota
	headerSingle
	headerMulti
)

/* HeaderValue is a header as the transport delivered it:
 * a single value, a list of values, or nothing at all
 */
type HeaderValue struct {
	kind   headerKind
	values []string
}

func Single(v string) HeaderValue {
	return HeaderValue{kind: headerSingle, values: []string{v}}
}

func Multi(vs ...string) HeaderValue {
	switch len(vs) {
	case 0:
		return Missing()
	case 1:
		return Single(vs[0])
	}
	return HeaderValue{kind: headerMulti, values: append([]string(nil), vs...)}
}

func Missing() HeaderValue {
	return HeaderValue{kind: headerMissing}
}

// String is the canonical stored form: list values joined with ", ", missing as ""
func (h HeaderValue) String() string {
	switch h.kind {
	case headerSingle:
		return h.values[0]
	case headerMulti:
		return strings.Join(h.values, ", ")
	default:
		return ""
	}
}

type bodyKind int

const (
	bodyNone bodyKind = iota
	bodyText
	bodyStructured
)

/* Body is never typed against a schema: it is either opaque text,
 * an already-decoded value that gets re-serialized, or absent
 */
type Body struct {
	kind  bodyKind
	text  string
	value any
}

func NoBody() Body {
	return Body{kind: bodyNone}
}

// Text keeps the body byte-for-byte, binary content included
func Text(s string) Body {
	return Body{kind: bodyText, text: s}
}

// Structured holds a decoded value; json.RawMessage is compacted, anything else JSON-encoded
func Structured(v any) Body {
	return Body{kind: bodyStructured, value: v}
}

func (b Body) IsPresent() bool {
	return b.kind != bodyNone
}
