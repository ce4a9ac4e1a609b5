package billingrun

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/hisaab/internal/billingrun/service"
)

var Module = fx.Module("billingrun.service",
	fx.Provide(service.New),
)
