package listing

import "go.uber.org/fx"

// Module exposes the listing read service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
