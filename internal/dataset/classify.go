package dataset

import (
	"context"
	"errors"

	"github.com/nao1215/brewcrawl/internal/document"
	"github.com/nao1215/brewcrawl/internal/extract"
	"github.com/nao1215/brewcrawl/internal/fetch"
	"github.com/nao1215/brewcrawl/internal/link"
	"github.com/nao1215/brewcrawl/internal/model"
)

// ClassifyError maps an extraction error to a failure kind.
func ClassifyError(err error) model.FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return model.FailureCanceled
	case errors.Is(err, extract.ErrLayoutNotFound):
		return model.FailureLayoutNotFound
	case errors.Is(err, document.ErrParse):
		return model.FailureParse
	case errors.Is(err, link.ErrMalformedURL):
		return model.FailureMalformedURL
	case errors.Is(err, fetch.ErrFetch):
		return model.FailureFetch
	default:
		return model.FailureUnknown
	}
}
