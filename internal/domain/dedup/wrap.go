package dedup

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/FitOS/backend/internal/shared/keys"
)

// Func is the canonical shape of a deduplicatable call
type Func func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// KeyFunc derives a deduplication key from call parameters
type KeyFunc func(params map[string]interface{}) (string, error)

// Wrap returns fn with deduplication applied transparently: calls whose
// parameters canonicalize to the same key share one execution. The key
// is namespaced under dependency.
func Wrap(c *Coalescer, dependency string, opts Options, fn Func) Func {
	return WrapKeyed(c, func(params map[string]interface{}) (string, error) {
		return keys.Derive(dependency, params)
	}, opts, fn)
}

// WrapKeyed is Wrap with a caller-supplied key derivation rule
func WrapKeyed(c *Coalescer, keyFn KeyFunc, opts Options, fn Func) Func {
	return func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
		key, err := keyFn(params)
		if err != nil {
			return nil, fmt.Errorf("failed to derive deduplication key: %w", err)
		}

		return c.Execute(ctx, key, func(runCtx context.Context) (interface{}, error) {
			return fn(runCtx, params)
		}, opts)
	}
}
