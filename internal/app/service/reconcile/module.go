package reconcile

import (
	"context"

	"go.uber.org/fx"
)

// Module exposes the reconciliation engine via Fx.
var Module = fx.Options(
	fx.Provide(NewDispatcher),
	fx.Provide(NewEngine),
	fx.Provide(NewController),
	fx.Invoke(registerDispatcherDrain),
)

// registerDispatcherDrain lets in-flight notifications finish on shutdown.
func registerDispatcherDrain(lc fx.Lifecycle, d *Dispatcher) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				d.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
