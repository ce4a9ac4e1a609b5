package member

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/hisaab/internal/member/service"
)

var Module = fx.Module("member.service",
	fx.Provide(service.New),
)
