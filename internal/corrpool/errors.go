package corrpool

import (
	"github.com/corrlab/corrbuf/internal/errors"
)

const componentName = "corrpool"

// Operation names used in error context, logs and metrics.
const (
	opAcquire   = "acquire_for_fill"
	opPublish   = "publish"
	opDiscard   = "discard"
	opRelease   = "release"
	opMatchSet  = "wait_for_complete_set"
	opMatchAny  = "wait_for_any_ready"
	opBufferIO  = "buffer_access"
	opConstruct = "create_pool"
)

// contractViolation builds the panic value for an operation called on a
// buffer the caller does not own.
func contractViolation(op string, id BufferID, want, got BufferStatus) *errors.EnhancedError {
	return errors.Newf("%s: buffer %d is %s, expected %s", op, id, got, want).
		Component(componentName).
		Category(errors.CategoryState).
		Priority(errors.PriorityCritical).
		Context("operation", op).
		Context("buffer_id", int(id)).
		Context("status", got.String()).
		Context("expected_status", want.String()).
		Build()
}

func invalidID(op string, id BufferID, capacity int) *errors.EnhancedError {
	return errors.Newf("%s: buffer id %d outside [0, %d)", op, id, capacity).
		Component(componentName).
		Category(errors.CategoryState).
		Priority(errors.PriorityCritical).
		Context("operation", op).
		Context("buffer_id", int(id)).
		Build()
}

func invalidConfig(field string, value any, format string, args ...any) error {
	return errors.Newf(format, args...).
		Component(componentName).
		Category(errors.CategoryValidation).
		Context("operation", opConstruct).
		Context("field", field).
		Context("value", value).
		Build()
}
