package webhook

import "time"

/* Webhook is one captured inbound HTTP request
 * Uses value semantics as it represents data, not behavior
 * Pointer fields are absent values, not optional ones: nil is stored as NULL
 */
type Webhook struct {
	ID string
	Draft
	CreatedAt time.Time
}

// Draft holds everything the capture path decides; the store assigns ID and CreatedAt
type Draft struct {
	Method        string
	Pathname      string
	IP            string
	StatusCode    int
	ContentType   *string
	ContentLength *int64
	QueryParams   map[string]string
	Headers       map[string]string
	Body          *string
}

// Summary is the listing projection of a Webhook
type Summary struct {
	ID        string
	Method    string
	Pathname  string
	CreatedAt time.Time
}

// Summary projects the record onto its listing fields
func (w Webhook) Summary() Summary {
	return Summary{
		ID:        w.ID,
		Method:    w.Method,
		Pathname:  w.Pathname,
		CreatedAt: w.CreatedAt,
	}
}
