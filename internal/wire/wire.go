package wire

import (
	"net/http"

	"restaurant-ops/internal/adaptor"
	"restaurant-ops/internal/data/repository"
	"restaurant-ops/internal/usecase"
	"restaurant-ops/pkg/middleware"
	"restaurant-ops/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App holds the wired router and the services behind it
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services, handlers and routes
func Wiring(repo *repository.Repository, deps usecase.Deps, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, deps, config, logger)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(handler *adaptor.Handler, config *utils.Config, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))

	limiter := middleware.NewRateLimiter(config.RateLimit)

	wireTable(r, handler.Table, logger)
	wireReservation(r, handler.Reservation, limiter, logger)
	wireOrder(r, handler.Order, logger)
	wirePayment(r, handler.Payment, handler.Coupon, limiter, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
