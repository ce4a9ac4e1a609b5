package supply

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/hisaab/internal/supply/service"
)

var Module = fx.Module("supply.service",
	fx.Provide(service.New),
)
