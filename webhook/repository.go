package webhook

import "context"

/* Small, focused interfaces following "The Go Way"
 * Interfaces abstract behavior, not things
 * Written for users of the API, not just for testing
 */

// Reader provides read operations for captured webhooks
type Reader interface {
	/* ListBefore returns at most n summaries with an id strictly lower than cursor,
	 * newest first. An empty cursor means no upper bound.
	 */
	ListBefore(ctx context.Context, cursor string, n int) ([]Summary, error)
	Get(ctx context.Context, id string) (Webhook, error)
	Count(ctx context.Context) (int64, error)
}

// Writer provides write operations for captured webhooks
type Writer interface {
	/* Insert stores the draft atomically and returns the stored row,
	 * id and creation time included
	 */
	Insert(ctx context.Context, draft Draft) (Webhook, error)
	Delete(ctx context.Context, id string) error
}

type Repository interface {
	Reader
	Writer
	Close(ctx context.Context) error
}
