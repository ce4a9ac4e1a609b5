package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/migration"
	"github.com/smallbiznis/hisaab/internal/server"
	"github.com/smallbiznis/hisaab/pkg/db"
	"github.com/smallbiznis/hisaab/pkg/log"
	"github.com/smallbiznis/hisaab/pkg/redis"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		redis.Module,
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
