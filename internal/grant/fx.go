package grant

import (
	"github.com/devhb1/FrappeLms-sub002/internal/grant/domain"
	"github.com/devhb1/FrappeLms-sub002/internal/grant/repository"
	"github.com/devhb1/FrappeLms-sub002/internal/grant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("grant",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
)
