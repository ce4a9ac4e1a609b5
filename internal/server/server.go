package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/hisaab/internal/billingrun"
	billingrundomain "github.com/smallbiznis/hisaab/internal/billingrun/domain"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/invoice"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	"github.com/smallbiznis/hisaab/internal/ledger"
	ledgerdomain "github.com/smallbiznis/hisaab/internal/ledger/domain"
	"github.com/smallbiznis/hisaab/internal/member"
	memberdomain "github.com/smallbiznis/hisaab/internal/member/domain"
	"github.com/smallbiznis/hisaab/internal/membership"
	membershipdomain "github.com/smallbiznis/hisaab/internal/membership/domain"
	"github.com/smallbiznis/hisaab/internal/merchant"
	merchantdomain "github.com/smallbiznis/hisaab/internal/merchant/domain"
	obsmetrics "github.com/smallbiznis/hisaab/internal/observability/metrics"
	"github.com/smallbiznis/hisaab/internal/otp"
	otpdomain "github.com/smallbiznis/hisaab/internal/otp/domain"
	"github.com/smallbiznis/hisaab/internal/providers"
	"github.com/smallbiznis/hisaab/internal/stats"
	statsdomain "github.com/smallbiznis/hisaab/internal/stats/domain"
	"github.com/smallbiznis/hisaab/internal/supply"
	supplydomain "github.com/smallbiznis/hisaab/internal/supply/domain"
)

var Module = fx.Module("http.server",
	obsmetrics.Module,
	providers.Module,
	merchant.Module,
	member.Module,
	membership.Module,
	supply.Module,
	ledger.Module,
	invoice.Module,
	billingrun.Module,
	stats.Module,
	otp.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, m *obsmetrics.Metrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmetrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	log           *zap.Logger
	merchantSvc   merchantdomain.Service
	memberSvc     memberdomain.Service
	membershipSvc membershipdomain.Service
	supplySvc     supplydomain.Service
	ledgerSvc     ledgerdomain.Service
	invoiceSvc    invoicedomain.Service
	billingRunSvc billingrundomain.Service
	statsSvc      statsdomain.Service
	otpSvc        otpdomain.Service
	uploader      providers.Uploader
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	MerchantSvc   merchantdomain.Service
	MemberSvc     memberdomain.Service
	MembershipSvc membershipdomain.Service
	SupplySvc     supplydomain.Service
	LedgerSvc     ledgerdomain.Service
	InvoiceSvc    invoicedomain.Service
	BillingRunSvc billingrundomain.Service
	StatsSvc      statsdomain.Service
	OTPSvc        otpdomain.Service
	Uploader      providers.Uploader
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		log:           p.Log.Named("http.server"),
		merchantSvc:   p.MerchantSvc,
		memberSvc:     p.MemberSvc,
		membershipSvc: p.MembershipSvc,
		supplySvc:     p.SupplySvc,
		ledgerSvc:     p.LedgerSvc,
		invoiceSvc:    p.InvoiceSvc,
		billingRunSvc: p.BillingRunSvc,
		statsSvc:      p.StatsSvc,
		otpSvc:        p.OTPSvc,
		uploader:      p.Uploader,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/v1/auth")
	auth.POST("/otp/request", s.RequestOTP)
	auth.POST("/otp/verify", s.VerifyOTP)
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1", s.AuthRequired())

	v1.GET("/me", s.GetProfile)
	v1.GET("/me/memberships", s.ListMyMemberships)
	v1.PUT("/me/picture", s.UpdateProfilePicture)

	admin := v1.Group("", s.RequireMerchantAccess())

	admin.POST("/merchants", s.CreateMerchant)
	admin.GET("/merchants", s.ListMerchants)
	admin.GET("/merchants/:id", s.GetMerchant)
	admin.PUT("/merchants/:id/commission-structure", s.UpdateCommissionStructure)
	admin.POST("/merchants/:id/staff", s.CreateStaffMember)
	admin.POST("/merchants/:id/customers", s.CreateCustomerMember)
	admin.GET("/merchants/:id/members", s.ListMerchantMembers)
	admin.GET("/merchants/:id/memberships", s.ListMerchantMemberships)
	admin.POST("/merchants/:id/billing-runs", s.GenerateMonthlyInvoices)

	admin.GET("/members/:id", s.GetMember)

	admin.GET("/memberships/:id", s.GetMembership)
	admin.PUT("/memberships/:id/active", s.ToggleMembershipActive)
	admin.PUT("/memberships/:id/pricing", s.UpdateMembershipPricing)
	admin.GET("/memberships/:id/stats", s.GetMembershipStats)
	admin.GET("/memberships/:id/transactions", s.ListMembershipTransactions)
	admin.POST("/memberships/:id/payments", s.ApplyPayment)
	admin.GET("/memberships/:id/supplies", s.ListSupplyRecords)
	admin.POST("/memberships/:id/supplies", s.RecordSupply)

	admin.POST("/invoices", s.CreateInvoice)
	admin.GET("/invoices", s.ListInvoices)
	admin.GET("/invoices/:id", s.GetInvoice)
	admin.PATCH("/invoices/:id", s.UpdateInvoice)

	admin.GET("/transactions/:id", s.GetTransaction)
	admin.DELETE("/transactions/:id", s.RevertTransaction)
}
