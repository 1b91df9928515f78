// Package context aliases the standard library context so that call sites read
// as context.T, context.F and so on.
package context

import (
	"context"
)

type (
	T = context.Context
	F = context.CancelFunc
	C = context.CancelCauseFunc
)

var (
	Bg               = context.Background
	Cancel           = context.WithCancel
	Timeout          = context.WithTimeout
	Deadline         = context.WithDeadline
	WithoutCancel    = context.WithoutCancel
	AfterFunc        = context.AfterFunc
	TODO             = context.TODO
	Value            = context.WithValue
	CancelCause      = context.WithCancelCause
	Cause            = context.Cause
	Canceled         = context.Canceled
	DeadlineExceeded = context.DeadlineExceeded
)
