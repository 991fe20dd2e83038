package extract

import "errors"

// ErrLayoutNotFound is returned when an element the extractor relies on is
// missing from the page. The wrapping error names the element.
var ErrLayoutNotFound = errors.New("expected page layout not found")
