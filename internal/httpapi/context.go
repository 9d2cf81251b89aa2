package httpapi

import (
	"context"
)

// serverBaseCtx is the process-level context handlers join with each
// request's context, so daemon shutdown cancels in-flight renders.
// Defaults to Background until main installs one.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process-level base context.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts returns a context canceled when either a or b is done.
// Callers must invoke the cancel func to release the watcher goroutine
// when the handler returns.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		}
	}()
	return ctx, cancel
}
