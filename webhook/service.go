package webhook

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-inspector/pagination"
)

/* Service represents the business logic layer
 * Uses pointer semantics as it's an API, not data
 */

const (
	DefaultLimit = 20
	MinLimit     = 1
	MaxLimit     = 100
)

// Page is one page of the reverse-chronological listing
type Page = pagination.Page[Summary]

// UseCase defines the business operations for captured webhooks
type UseCase interface {
	Capture(ctx context.Context, draft Draft) (Webhook, error)
	List(ctx context.Context, limit int, cursor string) (Page, error)
	Get(ctx context.Context, id string) (Webhook, error)
	Delete(ctx context.Context, id string) error
}

// Observer is notified after successful operations, metrics hang off it
type Observer interface {
	Captured(ctx context.Context, wh Webhook)
	Listed(ctx context.Context, page Page)
}

type nopObserver struct{}

func (nopObserver) Captured(context.Context, Webhook) {}
func (nopObserver) Listed(context.Context, Page)      {}

type Service struct {
	Repo     Repository
	Observer Observer
}

// NewService creates a new webhook service with dependency injection
func NewService(repo Repository) *Service {
	return &Service{
		Repo:     repo,
		Observer: nopObserver{},
	}
}

// WithObserver replaces the service observer
func (s *Service) WithObserver(o Observer) *Service {
	if o == nil {
		o = nopObserver{}
	}
	s.Observer = o
	return s
}

// Capture persists one normalized request; duplicates are stored as-is
func (s *Service) Capture(ctx context.Context, draft Draft) (Webhook, error) {
	wh, err := s.Repo.Insert(ctx, draft)
	if err != nil {
		return Webhook{}, fmt.Errorf("inserting webhook: %w", err)
	}
	s.Observer.Captured(ctx, wh)
	return wh, nil
}

// List returns a page of summaries, newest first, strictly older than cursor
func (s *Service) List(ctx context.Context, limit int, cursor string) (Page, error) {
	if err := ValidateLimit(limit); err != nil {
		return Page{}, err
	}
	cursor, err := ParseCursor(cursor)
	if err != nil {
		return Page{}, err
	}

	rows, err := s.Repo.ListBefore(ctx, cursor, pagination.Probe(limit))
	if err != nil {
		return Page{}, fmt.Errorf("listing webhooks: %w", err)
	}

	page := pagination.Cut(rows, limit, func(s Summary) string { return s.ID })
	s.Observer.Listed(ctx, page)
	return page, nil
}

// Get returns the full record
func (s *Service) Get(ctx context.Context, id string) (Webhook, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Webhook{}, ErrNotFound
	}
	id = parsed.String()
	wh, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Webhook{}, fmt.Errorf("getting webhook %s: %w", id, err)
	}
	return wh, nil
}

// Delete removes the record
func (s *Service) Delete(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	id = parsed.String()
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting webhook %s: %w", id, err)
	}
	return nil
}

func ValidateLimit(limit int) error {
	if limit < MinLimit || limit > MaxLimit {
		return ErrInvalidLimit
	}
	return nil
}

// ParseCursor accepts an empty cursor or any well-formed id, existing or not,
// and returns it in the canonical lower-case form ids are stored in
func ParseCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	id, err := uuid.Parse(cursor)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return id.String(), nil
}
