package ledger

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/hisaab/internal/ledger/service"
)

var Module = fx.Module("ledger.service",
	fx.Provide(service.New),
)
