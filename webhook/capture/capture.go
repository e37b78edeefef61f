// Package capture turns an arbitrary inbound HTTP request into a webhook draft.
package capture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/marcelsud/webhook-inspector/webhook"
	"github.com/tidwall/pretty"
)

// Prefix is the mount point of the capture route, stripped from stored paths
const Prefix = "/capture"

var ErrUnencodableBody = errors.New("body cannot be encoded")

/* Input is a request as seen at the transport boundary
 * DeclaredLength is the caller's Content-Length; it is never trusted for storage
 */
type Input struct {
	Method         string
	URL            *url.URL
	RemoteAddr     string
	Headers        map[string]HeaderValue
	Body           Body
	DeclaredLength *int64
}

// FromRequest adapts a live request whose body was already read into body
func FromRequest(r *http.Request, body []byte) Input {
	headers := make(map[string]HeaderValue, len(r.Header)+1)
	for name, values := range r.Header {
		headers[name] = Multi(values...)
	}
	// net/http moves Host out of the header map
	if r.Host != "" {
		if _, ok := r.Header["Host"]; !ok {
			headers["Host"] = Single(r.Host)
		}
	}

	var declared *int64
	if n, err := strconv.ParseInt(r.Header.Get("Content-Length"), 10, 64); err == nil {
		declared = &n
	}

	return Input{
		Method:         r.Method,
		URL:            r.URL,
		RemoteAddr:     r.RemoteAddr,
		Headers:        headers,
		Body:           classify(r.Header.Get("Content-Type"), body),
		DeclaredLength: declared,
	}
}

func classify(contentType string, body []byte) Body {
	if len(body) == 0 {
		return NoBody()
	}
	if isJSON(contentType) && json.Valid(body) {
		return Structured(json.RawMessage(body))
	}
	return Text(string(body))
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// Normalize maps one request and the status the endpoint decided on to a draft.
// It never rejects a request because of its shape.
func Normalize(in Input, statusCode int) (webhook.Draft, error) {
	body, err := normalizeBody(in.Body)
	if err != nil {
		return webhook.Draft{}, err
	}

	headers := NormalizeHeaders(in.Headers)

	draft := webhook.Draft{
		Method:      in.Method,
		Pathname:    Pathname(in.URL),
		IP:          clientIP(in.RemoteAddr),
		StatusCode:  statusCode,
		QueryParams: queryParams(in.URL),
		Headers:     headers,
		Body:        body,
	}
	if ct, ok := headers["content-type"]; ok {
		draft.ContentType = &ct
	}
	if body != nil {
		n := int64(len(*body))
		draft.ContentLength = &n
	}
	return draft, nil
}

// IsCapturePath reports whether u is under the capture mount.
// It matches the escaped path, the same form Pathname strips from.
func IsCapturePath(u *url.URL) bool {
	return u != nil && underPrefix(u.EscapedPath())
}

func underPrefix(path string) bool {
	return path == Prefix || strings.HasPrefix(path, Prefix+"/")
}

// Pathname is the request path without the capture prefix, leading slash kept
func Pathname(u *url.URL) string {
	if u == nil {
		return "/"
	}
	path := u.EscapedPath()
	if underPrefix(path) {
		path = strings.TrimPrefix(path, Prefix)
	}
	if path == "" {
		return "/"
	}
	return path
}

/* NormalizeHeaders lower-cases names and collapses each header to one string.
 * Names differing only by case are merged in byte order of the original names.
 */
func NormalizeHeaders(in map[string]HeaderValue) map[string]string {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]string, len(in))
	for _, name := range names {
		key := strings.ToLower(name)
		value := in[name].String()
		if prev, ok := out[key]; ok {
			switch {
			case prev == "":
				out[key] = value
			case value != "":
				out[key] = prev + ", " + value
			}
			continue
		}
		out[key] = value
	}
	return out
}

func queryParams(u *url.URL) map[string]string {
	if u == nil || u.RawQuery == "" {
		return nil
	}
	// malformed pairs are dropped, the rest is kept
	values, _ := url.ParseQuery(u.RawQuery)
	params := make(map[string]string, len(values))
	for key, vs := range values {
		params[key] = strings.Join(vs, ", ")
	}
	return params
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func normalizeBody(b Body) (*string, error) {
	if !b.IsPresent() {
		return nil, nil
	}
	switch b.kind {
	case bodyText:
		s := b.text
		return &s, nil
	case bodyStructured:
		var raw []byte
		if msg, ok := b.value.(json.RawMessage); ok {
			raw = pretty.Ugly(msg)
		} else {
			encoded, err := json.Marshal(b.value)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnencodableBody, err)
			}
			raw = encoded
		}
		s := string(bytes.TrimSpace(raw))
		return &s, nil
	default:
		return nil, fmt.Errorf("%w: unknown body kind %d", ErrUnencodableBody, b.kind)
	}
}
