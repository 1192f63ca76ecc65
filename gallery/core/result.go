package core

import (
	"context"
	"errors"
)

type Kind string

const (
	KindOK          Kind = "ok"
	KindEmpty       Kind = "empty"
	KindNotFound    Kind = "not_found"
	KindUnavailable Kind = "unavailable"
	KindBadResponse Kind = "bad_response"
	KindCanceled    Kind = "canceled"
	KindSkipped     Kind = "skipped"
	KindStale       Kind = "stale"
	KindBadArgument Kind = "bad_argument"
)

// Result is returned by every fetch operation of the gallery.
type Result struct {
	Kind     Kind  `json:"kind"`
	Rendered int   `json:"rendered"`
	Err      error `json:"-"`
}

func (r Result) OK() bool {
	return r.Kind == KindOK || r.Kind == KindEmpty
}

// Classify maps an error from the fetch layer to a result kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrBadArguments):
		return KindBadArgument
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	default:
		return KindBadResponse
	}
}

func failed(err error) Result {
	return Result{Kind: Classify(err), Err: err}
}
