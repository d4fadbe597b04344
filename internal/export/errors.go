package export

import (
	"errors"
	"fmt"
)

// ErrManuallyTerminated aborts a run when the job was terminated from
// the outside. The message is matched verbatim by downstream consumers;
// do not change it.
var ErrManuallyTerminated = errors.New("Manually Terminated!!")

// ConfigurationError means the job cannot run with the configuration it
// was given: missing client, product type, channel, or mapping profile.
type ConfigurationError struct {
	Field  string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error on %s: %s", e.Field, e.Detail)
}

// NoProductsError means the product fetch returned an empty or
// non-collection result for the job's scope.
type NoProductsError struct {
	ClientID      string
	ProductTypeID string
	Channel       string
}

func (e *NoProductsError) Error() string {
	return fmt.Sprintf("no products found for client %s, product type %s, channel %s",
		e.ClientID, e.ProductTypeID, e.Channel)
}

// RowEvaluationError wraps a per-cell evaluation failure. It is always
// recovered: the cell becomes nil and the row continues.
type RowEvaluationError struct {
	Attribute string
	Err       error
}

func (e *RowEvaluationError) Error() string {
	return fmt.Sprintf("evaluating attribute %q: %v", e.Attribute, e.Err)
}

func (e *RowEvaluationError) Unwrap() error {
	return e.Err
}
