package sanitize

import "fmt"

// MalformedResponseError reports a response with no parseable payload.
// RawExcerpt holds at most MaxExcerpt characters of the original text.
type MalformedResponseError struct {
	Detail     string
	RawExcerpt string
	RawLength  int
}

func newMalformed(detail, raw string) *MalformedResponseError {
	return &MalformedResponseError{
		Detail:     detail,
		RawExcerpt: Excerpt(raw),
		RawLength:  len(raw),
	}
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("invalid JSON response from model: %s", e.Detail)
}
