package otp

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/hisaab/internal/otp/service"
)

var Module = fx.Module("otp.service",
	fx.Provide(service.New),
)
