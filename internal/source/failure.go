package source

import "fmt"

// Kind classifies why an extraction produced no price.
type Kind int

const (
	// KindInvalidURL marks a link that fails the source's domain/path
	// precondition. Returned without any network call.
	KindInvalidURL Kind = iota
	// KindTimeout marks a per-call deadline exceeded.
	KindTimeout
	// KindNotFound marks a page that no longer exists.
	KindNotFound
	// KindParseMiss marks a page that loaded but carried no price element.
	KindParseMiss
	// KindTransport marks a network, DNS or TLS failure.
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	case KindParseMiss:
		return "parse_miss"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Failure is the only error type an Extractor may return. All failure
// kinds collapse to "no price" for the row; the kind survives for
// diagnostics.
type Failure struct {
	Kind Kind
	URL  string
	Err  error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.URL, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.URL)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Fail builds a Failure for url. err may be nil.
func Fail(kind Kind, url string, err error) *Failure {
	return &Failure{Kind: kind, URL: url, Err: err}
}
