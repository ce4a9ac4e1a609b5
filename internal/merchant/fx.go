package merchant

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/hisaab/internal/merchant/service"
)

var Module = fx.Module("merchant.service",
	fx.Provide(service.New),
)
