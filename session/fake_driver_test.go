package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/use-agent/bestip/browser"
)

var errMissing = errors.New("element not found")

// fakeDriver is a scripted in-memory page.
type fakeDriver struct {
	mu sync.Mutex

	values map[string]string // <select> values by selector
	// listTexts is replayed one entry per result-list read; the last repeats.
	listTexts []string
	listErrs  []error
	html      string
	htmlErr   error

	navigateErr error
	clickErr    error
	selectErr   error
	attrErr     map[string]error

	// slowReads result-list reads block until their context ends.
	slowReads int

	calls  []string
	closes int
	reads  int
	panic  string
}

var _ browser.Driver = (*fakeDriver)(nil)

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		values: map[string]string{
			SourceSelect: "official",
			PortSelect:   "443",
		},
		attrErr: map[string]error{},
	}
}

func (f *fakeDriver) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeDriver) Navigate(_ context.Context, url string) error {
	f.record("navigate %s", url)
	return f.navigateErr
}

func (f *fakeDriver) Text(ctx context.Context, selector string) (string, error) {
	f.record("text %s", selector)
	if selector != ResultList {
		return "", errMissing
	}
	if f.reads < f.slowReads {
		f.reads++
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.panic != "" {
		panic(f.panic)
	}
	i := f.reads
	if i >= len(f.listTexts) {
		i = len(f.listTexts) - 1
	}
	f.reads++
	if i < 0 {
		return "", errMissing
	}
	if i < len(f.listErrs) && f.listErrs[i] != nil {
		return "", f.listErrs[i]
	}
	return f.listTexts[i], nil
}

func (f *fakeDriver) Attribute(_ context.Context, selector, name string) (string, error) {
	f.record("attr %s %s", selector, name)
	if err := f.attrErr[selector]; err != nil {
		return "", err
	}
	v, ok := f.values[selector]
	if !ok {
		return "", errMissing
	}
	return v, nil
}

func (f *fakeDriver) SelectOption(_ context.Context, selector, value string) error {
	f.record("select %s %s", selector, value)
	if f.selectErr != nil {
		return f.selectErr
	}
	f.values[selector] = value
	return nil
}

func (f *fakeDriver) Click(_ context.Context, selector string) error {
	f.record("click %s", selector)
	return f.clickErr
}

func (f *fakeDriver) HTML(context.Context) (string, error) {
	f.record("html")
	return f.html, f.htmlErr
}

func (f *fakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeDriver) called(call string) bool {
	for _, c := range f.calls {
		if c == call {
			return true
		}
	}
	return false
}
