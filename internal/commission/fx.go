package commission

import (
	"github.com/devhb1/FrappeLms-sub002/internal/commission/domain"
	"github.com/devhb1/FrappeLms-sub002/internal/commission/repository"
	"github.com/devhb1/FrappeLms-sub002/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
)
