package lms

import (
	"github.com/devhb1/FrappeLms-sub002/internal/lms/client"
	"github.com/devhb1/FrappeLms-sub002/internal/lms/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("lms",
	fx.Provide(func(c *client.FrappeClient) domain.Client { return c }),
	fx.Provide(client.NewFrappeClient),
)
