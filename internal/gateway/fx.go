package gateway

import (
	"github.com/devhb1/FrappeLms-sub002/internal/gateway/domain"
	"github.com/devhb1/FrappeLms-sub002/internal/gateway/stripe"
	"go.uber.org/fx"
)

var Module = fx.Module("gateway",
	fx.Provide(func(adapter *stripe.Adapter) domain.Gateway { return adapter }),
	fx.Provide(stripe.NewAdapter),
)
