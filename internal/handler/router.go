package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/auth"
)

// RouterDeps are the collaborators NewRouter wires into the routes.
type RouterDeps struct {
	Events        EventService
	Subscriptions SubscriptionService
	Accounts      AccountService
	Tokens        TokenParser
	Limiter       *RateLimiter // optional
	Logger        *slog.Logger
}

// NewRouter builds the chi router for the whole HTTP API.
func NewRouter(d RouterDeps) http.Handler {
	events := NewEventHandler(d.Events, d.Logger)
	subs := NewSubscriptionHandler(d.Subscriptions, d.Accounts, d.Logger)
	accounts := NewAccountHandler(d.Accounts, d.Logger)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(d.Logger))        // structured access log
	r.Use(CORS)
	if d.Limiter != nil {
		r.Use(d.Limiter.Middleware(ClientIP))
	}

	r.Get("/health", HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/account", func(r chi.Router) {
			r.Post("/register", accounts.Register)
			r.Post("/login", accounts.Login)
			r.Get("/confirmEmail", accounts.ConfirmEmail)
			r.Post("/forgotPassword", accounts.ForgotPassword)
			r.Get("/resetPassword", accounts.ResetPasswordLink)
			r.Post("/resetPassword", accounts.ResetPassword)
		})

		r.Route("/manageAccount", func(r chi.Router) {
			r.Get("/confirmNewEmail", accounts.ConfirmNewEmail)

			r.Group(func(r chi.Router) {
				r.Use(Authenticate(d.Tokens))
				r.Post("/changePassword", accounts.ChangePassword)
				r.Post("/changeEmail", accounts.ChangeEmail)
			})
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/all", events.ListEvents)
			r.Get("/{id}", events.GetEvent)

			r.Group(func(r chi.Router) {
				r.Use(Authenticate(d.Tokens), RequireRole(auth.RoleModerator))
				r.Post("/createEvent", events.CreateEvent)
				r.Put("/{id}", events.UpdateEvent)
				r.Delete("/{id}", events.DeleteEvent)
			})
		})

		r.Route("/eventSubscription", func(r chi.Router) {
			r.Use(Authenticate(d.Tokens))

			r.With(RequireRole(auth.RoleCustomer)).Post("/apply/{eventId}", subs.Apply)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(auth.RoleModerator))
				r.Post("/closeRegistration/{eventId}", subs.CloseRegistration)
				r.Post("/openRegistration/{eventId}", subs.OpenRegistration)
				r.Post("/deleteCustomerFromEvent/{eventId}", subs.DeleteCustomerFromEvent)
				r.Get("/getAllAppliedCustomers/{eventId}", subs.GetAllAppliedCustomers)
				r.Post("/getAllAppliedCustomers/{eventId}", subs.GetAllAppliedCustomers)
				r.Get("/event/{eventId}", subs.GetEvent)
			})
		})
	})

	return r
}
