package core

import "errors"

var (
	ErrBadArguments  = errors.New("arguments are not acceptable")
	ErrNilDependency = errors.New("gallery: nil dependency")
	ErrNotFound      = errors.New("resource is not found")
	ErrUnavailable   = errors.New("remote service is unavailable")
	ErrBadResponse   = errors.New("unexpected remote response")
)
