// Package browser is the page-driving collaborator used by the session.
//
// Every method can fail independently; callers decide per stage whether a
// failure is fatal, degraded, or absorbed.
package browser

import "context"

// Driver is the set of page capabilities the session needs. Selectors are
// CSS selectors resolved against the single page the driver owns.
type Driver interface {
	// Navigate loads url in the page.
	Navigate(ctx context.Context, url string) error

	// Text returns the rendered text of the first element matching selector.
	Text(ctx context.Context, selector string) (string, error)

	// Attribute returns the live value of the named property of the first
	// element matching selector (e.g. the current "value" of a <select>).
	Attribute(ctx context.Context, selector, name string) (string, error)

	// SelectOption selects the <option> whose value attribute equals value.
	SelectOption(ctx context.Context, selector, value string) error

	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error

	// HTML returns a snapshot of the page's current DOM.
	HTML(ctx context.Context) (string, error)

	// Close releases the page and the browser. It is safe to call more than once.
	Close() error
}
