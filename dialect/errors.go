package dialect

import "errors"

// ErrDialectLoadFailed wraps every fatal condition that aborts catalog
// construction: malformed XML, a message id collision across documents, or
// an enum entry collision. The catalog loader never returns a partially
// built catalog for these — construction is all-or-nothing.
var ErrDialectLoadFailed = errors.New("dialect: load failed")

// ErrUnknownFieldType and ErrUnknownEnumGroup mark a single message as
// rejected. Loading continues with the remaining messages; these are
// collected in LoadResult.Errors rather than aborting Load.
var (
	ErrUnknownFieldType = errors.New("dialect: unknown field type")
	ErrUnknownEnumGroup = errors.New("dialect: field references unknown enum group")
)
