package rest

import (
	"net/http"

	"github.com/atukutisuzume/portfolio-visualizer/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func NewRouter(cfg *config.Config, controller *Controller) *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/trades", func(r chi.Router) {
			r.Post("/import", controller.ImportTrades)
			r.Get("/profit-loss", controller.ProfitLoss)
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Post("/import", controller.ImportHoldings)
			r.Get("/", controller.PortfolioByDate)
			r.Get("/latest", controller.LatestPortfolio)
			r.Get("/dates", controller.SnapshotDates)
			r.Get("/daily-change", controller.DailyChange)
			r.Get("/monthly-composition", controller.MonthlyComposition)
			r.Get("/symbol-history", controller.SymbolHistory)
			r.Get("/monthly-symbol-profit-loss", controller.MonthlySymbolProfitLoss)
		})

		r.Post("/reports/profit-loss", controller.GenerateReport)
	})

	return r
}
