package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/devhb1/FrappeLms-sub002/internal/clock"
	"github.com/devhb1/FrappeLms-sub002/internal/config"
	enrollmentrepository "github.com/devhb1/FrappeLms-sub002/internal/enrollment/repository"
	"github.com/devhb1/FrappeLms-sub002/internal/lms"
	"github.com/devhb1/FrappeLms-sub002/internal/migration"
	"github.com/devhb1/FrappeLms-sub002/internal/observability"
	"github.com/devhb1/FrappeLms-sub002/internal/retryqueue"
	"github.com/devhb1/FrappeLms-sub002/pkg/db"
	"go.uber.org/fx"
)

// The worker binary drains the durable sync queue on an interval. It
// runs without the HTTP surface so it can be scaled independently of
// webhook ingestion.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		lms.Module,
		fx.Provide(enrollmentrepository.Provide),
		retryqueue.WorkerModule,
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
