package retryqueue

import (
	"context"

	"github.com/devhb1/FrappeLms-sub002/internal/retryqueue/domain"
	"github.com/devhb1/FrappeLms-sub002/internal/retryqueue/repository"
	"github.com/devhb1/FrappeLms-sub002/internal/retryqueue/service"
	"go.uber.org/fx"
)

var Module = fx.Module("retryqueue",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
)

// WorkerModule additionally runs the background batch loop. Only the
// worker binary imports it; the API serves on-demand batches instead.
var WorkerModule = fx.Module("retryqueue.worker",
	Module,
	fx.Invoke(startWorkerLoop),
)

func startWorkerLoop(lc fx.Lifecycle, svc *service.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			loopCtx, cancel := context.WithCancel(context.Background())

			go svc.RunForever(loopCtx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
