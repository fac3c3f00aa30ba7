package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/devhb1/FrappeLms-sub002/internal/clock"
	"github.com/devhb1/FrappeLms-sub002/internal/config"
	"github.com/devhb1/FrappeLms-sub002/internal/migration"
	"github.com/devhb1/FrappeLms-sub002/internal/observability"
	"github.com/devhb1/FrappeLms-sub002/internal/server"
	"github.com/devhb1/FrappeLms-sub002/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
