package alert

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

var (
	TagValidation         = goerr.NewTag("validation")
	TagUnsupportedChannel = goerr.NewTag("unsupported_channel")
	TagDeliveryFailure    = goerr.NewTag("delivery_failure")
)

var (
	ErrInvalidInterval   = errors.New("reminder interval out of bounds")
	ErrInvalidSeverity   = errors.New("unknown severity")
	ErrInvalidVisibility = errors.New("malformed visibility descriptor")
	ErrEmptyTitle        = errors.New("alert title is required")
)

// IsValidation reports whether err was raised by input validation.
func IsValidation(err error) bool {
	return goerr.HasTag(err, TagValidation)
}
