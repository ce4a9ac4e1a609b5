package stats

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/hisaab/internal/stats/service"
)

var Module = fx.Module("stats.service",
	fx.Provide(service.New),
)
