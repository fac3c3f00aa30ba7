package enrollment

import (
	"github.com/devhb1/FrappeLms-sub002/internal/enrollment/domain"
	"github.com/devhb1/FrappeLms-sub002/internal/enrollment/repository"
	"github.com/devhb1/FrappeLms-sub002/internal/enrollment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("enrollment",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
)
