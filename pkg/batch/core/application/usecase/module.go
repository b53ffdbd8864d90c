package usecase

import (
	"go.uber.org/fx"
)

// Module is the Fx module for the BatchLauncher, BatchOperator and BatchExplorer.
var Module = fx.Options(
	fx.Provide(NewRunContextFromParams),
	fx.Provide(fx.Annotate(
		NewBatchDriver,
		fx.As(new(BatchLauncher)),
	)),
	fx.Provide(fx.Annotate(
		NewDefaultBatchOperator,
		fx.As(new(BatchOperator)),
	)),
	fx.Provide(fx.Annotate(
		NewSimpleBatchExplorer,
		fx.As(new(BatchExplorer)),
	)),
)
