package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/presswire-api/internal/config"
	"github.com/presswire-api/internal/transport/http/handler"
	appmiddleware "github.com/presswire-api/internal/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, svc *Services, limiter appmiddleware.Checker) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger(nil))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:     cfg.AllowedOrigins,
		AllowedMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:     []string{"Accept", "Authorization", "Content-Type", "Stripe-Signature"},
		ExposedHeaders:     []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials:   false,
		MaxAge:             300,
		OptionsPassthrough: true,
	}))
	// Pre-flight requests get an empty 200 once CORS headers are set.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if req.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, req)
		})
	})

	limit := func(endpoint string) func(http.Handler) http.Handler {
		return appmiddleware.RateLimit(limiter, endpoint)
	}

	healthH := handler.NewHealthHandler()
	verifyH := handler.NewVerificationHandler(svc.Verification)
	releaseH := handler.NewReleaseHandler(svc.Generate)
	manageH := handler.NewManageHandler(svc.Releases, svc.Analytics)
	adminH := handler.NewAdminHandler(svc.Admin, svc.Discounts)
	discountH := handler.NewDiscountHandler(svc.Discounts)
	draftH := handler.NewDraftHandler(svc.Drafts)
	paymentH := handler.NewPaymentHandler(svc.Payments)
	analyticsH := handler.NewAnalyticsHandler(svc.Analytics)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.With(limit("verify-domain")).Post("/verify-domain/send-code", verifyH.SendCode)
		r.With(limit("verify-domain")).Post("/verify-domain/verify-code", verifyH.VerifyCode)

		r.With(limit("generate-pr"), appmiddleware.Publish(svc.Publish)).Post("/releases", releaseH.Create)

		r.With(limit("default")).Post("/manage", manageH.Action)
		r.With(limit("admin"), appmiddleware.RequireAdmin(svc.Admin)).Post("/admin", adminH.Action)

		r.With(limit("default")).Post("/discounts/validate", discountH.Validate)
		r.With(limit("default")).Post("/drafts", draftH.Store)
		r.With(limit("default")).Get("/drafts/{id}", draftH.Get)

		r.Post("/webhooks/stripe", paymentH.Webhook)
		r.With(limit("default")).Post("/payments/claim", paymentH.Claim)
		r.With(limit("default")).Post("/analytics/track", analyticsH.Track)
	})

	return r
}
