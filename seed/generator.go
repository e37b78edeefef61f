package seed

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/marcelsud/webhook-inspector/webhook"
	"github.com/marcelsud/webhook-inspector/webhook/capture"
)

// Delivery is one synthetic inbound request built from a template
type Delivery struct {
	Template *Template
	EventID  string
	Input    capture.Input
}

// Generator picks templates by weight and fills in per-delivery randomness
type Generator struct {
	templates []*Template
	total     int
	faker     *gofakeit.Faker
	now       func() time.Time
}

// NewGenerator builds a generator; a nil faker gets a randomly seeded one
func NewGenerator(templates []*Template, faker *gofakeit.Faker) (*Generator, error) {
	total := 0
	for _, t := range templates {
		total += t.Weight
	}
	if total == 0 {
		return nil, fmt.Errorf("no template with a positive weight")
	}
	if faker == nil {
		faker = gofakeit.New(0)
	}
	return &Generator{
		templates: templates,
		total:     total,
		faker:     faker,
		now:       time.Now,
	}, nil
}

// Next builds the request a sender of the picked template would make
func (g *Generator) Next() Delivery {
	t := g.pick()
	eventID := "evt_" + g.faker.Regex("[a-z0-9]{24}")

	u := &url.URL{Path: capture.Prefix + t.Path}
	if len(t.Query) > 0 {
		values := url.Values{}
		for k, v := range t.Query {
			values.Set(k, v)
		}
		u.RawQuery = values.Encode()
	}

	headers := make(map[string]capture.HeaderValue, len(t.Headers)+1)
	for name, value := range t.Headers {
		headers[name] = capture.Single(value)
	}
	headers["Request-Id"] = capture.Single("req_" + g.faker.Regex("[a-z0-9]{14}"))

	body := capture.NoBody()
	if t.Body != nil {
		payload := make(map[string]interface{}, len(t.Body)+2)
		for k, v := range t.Body {
			payload[k] = v
		}
		payload["id"] = eventID
		payload["created"] = g.now().Unix()
		body = capture.Structured(payload)
	}

	return Delivery{
		Template: t,
		EventID:  eventID,
		Input: capture.Input{
			Method:     t.Method,
			URL:        u,
			RemoteAddr: net.JoinHostPort(g.faker.IPv4Address(), "443"),
			Headers:    headers,
			Body:       body,
		},
	}
}

func (g *Generator) pick() *Template {
	n := g.faker.Number(0, g.total-1)
	for _, t := range g.templates {
		if n < t.Weight {
			return t
		}
		n -= t.Weight
	}
	return g.templates[len(g.templates)-1]
}

// Report summarizes a seeding run
type Report struct {
	Count      int
	Bytes      int64
	ByTemplate map[string]int
	Latest     webhook.Summary
}

/* Run captures n generated deliveries through the service
 * Deliveries go through the same normalization as live requests
 */
func Run(ctx context.Context, service webhook.UseCase, gen *Generator, n int) (Report, error) {
	report := Report{ByTemplate: make(map[string]int)}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		d := gen.Next()
		draft, err := capture.Normalize(d.Input, d.Template.Status)
		if err != nil {
			return report, fmt.Errorf("normalizing %s: %w", d.Template.Name, err)
		}
		wh, err := service.Capture(ctx, draft)
		if err != nil {
			return report, fmt.Errorf("capturing %s: %w", d.Template.Name, err)
		}

		report.Count++
		report.ByTemplate[d.Template.Name]++
		report.Latest = wh.Summary()
		if wh.ContentLength != nil {
			report.Bytes += *wh.ContentLength
		}
	}
	return report, nil
}
