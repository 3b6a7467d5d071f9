package spatialhash

import (
	"errors"
	"fmt"
)

const packageName = "spatialhash: "

// ErrInvalidArgument is wrapped by every configuration error returned from
// this package: non-positive grid sizes, grid sizes that cannot be estimated
// from the data, and values with unusable bounds.
var ErrInvalidArgument = errors.New(packageName + "invalid argument")

func argErr(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, a...)...)
}

func fmtPanic(format string, a ...any) {
	panic(fmt.Sprintf(packageName+format, a...))
}
