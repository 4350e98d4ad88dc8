package api

import (
	"net/http"

	"github.com/erazemk/assettrack/internal/events"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/service"
)

// NewRouter creates the API router with all endpoints registered. hub may be
// nil to disable the live dashboard feed.
func NewRouter(svc *service.Service, hub *events.Hub, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{Svc: svc, JWTSecret: jwtSecret}
	assetsHandler := &AssetsHandler{Svc: svc}
	assignmentsHandler := &AssignmentsHandler{Svc: svc}
	categoriesHandler := &CategoriesHandler{Svc: svc}
	usersHandler := &UsersHandler{Svc: svc}
	dashboardHandler := &DashboardHandler{Svc: svc, Hub: hub}

	authMW := AuthMiddleware(svc, jwtSecret)
	requireAdmin := RequireRole(model.RoleAdmin)

	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }
	user := func(h http.HandlerFunc) http.Handler { return authMW(h) }

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Own account (all roles).
	mux.Handle("POST /api/auth/logout", user(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", user(authHandler.ChangePassword))
	mux.Handle("GET /api/auth/user", user(authHandler.CurrentUser))
	mux.Handle("GET /api/my-assets", user(usersHandler.MyAssets))

	// Dashboard (admin only).
	mux.Handle("GET /api/dashboard", admin(dashboardHandler.Get))
	mux.Handle("GET /api/dashboard/stats", admin(dashboardHandler.Stats))
	mux.Handle("GET /api/ws/dashboard", admin(dashboardHandler.Live))

	// Assets: employees may read the ones they hold and view images.
	mux.Handle("GET /api/assets", admin(assetsHandler.List))
	mux.Handle("POST /api/assets", admin(assetsHandler.Create))
	mux.Handle("GET /api/assets/available", admin(assetsHandler.Available))
	mux.Handle("GET /api/assets/{id}", user(assetsHandler.Get))
	mux.Handle("PUT /api/assets/{id}", admin(assetsHandler.Update))
	mux.Handle("DELETE /api/assets/{id}", admin(assetsHandler.Delete))
	mux.Handle("PUT /api/assets/{id}/image", admin(assetsHandler.UploadImage))
	mux.Handle("GET /api/assets/{id}/image", user(assetsHandler.GetImage))
	mux.Handle("GET /api/assets/{id}/history", admin(assetsHandler.History))
	mux.Handle("POST /api/assets/{id}/assign", admin(assetsHandler.Assign))
	mux.Handle("POST /api/assets/{id}/return", admin(assetsHandler.Return))

	// Assignment ledger.
	mux.Handle("GET /api/assignments", admin(assignmentsHandler.List))
	mux.Handle("GET /api/assignments/recent", admin(assignmentsHandler.Recent))
	mux.Handle("GET /api/assignments/{id}", user(assignmentsHandler.Get))

	// Categories: read (all roles), write (admin).
	mux.Handle("GET /api/categories", user(categoriesHandler.List))
	mux.Handle("POST /api/categories", admin(categoriesHandler.Create))
	mux.Handle("GET /api/categories/{id}", admin(categoriesHandler.Get))
	mux.Handle("PUT /api/categories/{id}", admin(categoriesHandler.Update))
	mux.Handle("DELETE /api/categories/{id}", admin(categoriesHandler.Delete))

	// Users (admin only, except reading yourself and your holdings).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", user(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))
	mux.Handle("GET /api/users/{id}/assets", user(usersHandler.Holdings))
	mux.Handle("GET /api/employees", admin(usersHandler.Employees))

	return mux
}
