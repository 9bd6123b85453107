package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouterConfig carries the service dependencies and middleware settings for
// the API surface.
type RouterConfig struct {
	Bookings    BookingService
	Payments    PaymentVerifier
	Wallet      WalletService
	Withdrawals WithdrawalService
	Resources   ResourceService
	CORSOrigins []string
	Logger      *log.Logger
}

// NewRouter wires the HTTP surface. The webhook route sits outside the
// principal middleware: the provider authenticates with its signature, not
// with a user identity.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", HealthHandler)
	r.Post("/bookings/webhook", HandleWebhook(cfg.Payments))
	r.Get("/resources", HandleListResources(cfg.Resources))

	r.Group(func(r chi.Router) {
		r.Use(Principal)

		r.Post("/resources", HandleCreateResource(cfg.Resources))

		r.Post("/bookings/check-availability", HandleCheckAvailability(cfg.Bookings))
		r.Post("/bookings", HandleCreateBooking(cfg.Bookings))
		r.Put("/bookings/{id}/accept", HandleAcceptBooking(cfg.Bookings))
		r.Post("/bookings/{id}/cancel", HandleCancelBooking(cfg.Bookings))
		r.Put("/bookings/{id}/complete", HandleCompleteBooking(cfg.Bookings))
		r.Get("/bookings/{id}/payment-status", HandlePaymentStatus(cfg.Payments))

		r.Get("/sellers/{id}/balance", HandleSellerBalance(cfg.Wallet))
		r.Get("/sellers/{id}/wallet", HandleSellerStatement(cfg.Wallet))
		r.Post("/sellers/{id}/withdrawals", HandleCreateWithdrawal(cfg.Withdrawals))
		r.Put("/withdrawals/{id}/process", HandleProcessWithdrawal(cfg.Withdrawals))
	})

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	return RequestLogger(CORS(cfg.CORSOrigins, r), cfg.Logger)
}
