package membership

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/hisaab/internal/membership/service"
)

var Module = fx.Module("membership.service",
	fx.Provide(service.New),
)
