package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/evomaxseipio/evotrack-backend/internal/auth"
	"github.com/evomaxseipio/evotrack-backend/internal/department"
	"github.com/evomaxseipio/evotrack-backend/internal/organization"
	"github.com/evomaxseipio/evotrack-backend/internal/team"
	"github.com/evomaxseipio/evotrack-backend/internal/transport/middleware"
	"github.com/evomaxseipio/evotrack-backend/internal/transport/swagger"
	"github.com/evomaxseipio/evotrack-backend/internal/user"
)

type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Organization *organization.Handler
	Invitation   *organization.InvitationHandler
	Department   *department.Handler
	Team         *team.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, allowedOrigins []string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// OpenAPI spec and Swagger UI live at the root, outside the API prefix
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/register", h.Auth.Register)
			sr.Post("/login", h.Auth.Login)
			sr.Post("/login/form", h.Auth.LoginForm)
			sr.Post("/refresh", h.Auth.RefreshToken)
			sr.Post("/logout", h.Auth.Logout)
			sr.Post("/activate", h.Auth.Activate)
			sr.Post("/resend-activation", h.Auth.ResendActivation)

			sr.Group(func(ar chi.Router) {
				ar.Use(h.Auth.AuthMiddleware)
				ar.Get("/me", h.Auth.Me)
			})
		})

		// Everything below requires a valid access token
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Route("/organizations", func(or chi.Router) {
				or.Post("/", h.Organization.CreateOrganization)
				or.Get("/", h.Organization.ListOrganizations)
				or.Post("/invitations/accept", h.Invitation.AcceptInvitation)

				or.Route("/{orgID}", func(sr chi.Router) {
					sr.Get("/", h.Organization.GetOrganization)
					sr.Put("/", h.Organization.UpdateOrganization)
					sr.Delete("/", h.Organization.DeleteOrganization)

					sr.Post("/invitations", h.Invitation.CreateInvitation)
					sr.Post("/invitations/bulk", h.Invitation.BulkCreateInvitations)
					sr.Delete("/invitations/{invitationID}", h.Invitation.CancelInvitation)

					sr.Get("/members", h.Organization.ListMembers)
					sr.Put("/members/{userID}", h.Organization.UpdateMember)
					sr.Delete("/members/{userID}", h.Organization.RemoveMember)

					sr.Route("/departments", func(dr chi.Router) {
						dr.Post("/", h.Department.CreateDepartment)
						dr.Get("/", h.Department.ListDepartments)
						dr.Post("/search", h.Department.SearchDepartments)
						dr.Get("/stats", h.Department.DepartmentStats)
						dr.Get("/{deptID}", h.Department.GetDepartment)
						dr.Put("/{deptID}", h.Department.UpdateDepartment)
						dr.Delete("/{deptID}", h.Department.DeleteDepartment)
					})

					sr.Route("/users", func(ur chi.Router) {
						ur.Post("/", h.User.CreateUser)
						ur.Get("/", h.User.ListUsers)
						ur.Post("/bulk", h.User.BulkCreateUsers)
						ur.Get("/search", h.User.SearchUsers)
						ur.Get("/stats", h.User.UserStats)
						ur.Get("/{userID}", h.User.GetUser)
						ur.Put("/{userID}", h.User.UpdateUser)
						ur.Post("/{userID}/deactivate", h.User.DeactivateUser)
						ur.Post("/{userID}/reactivate", h.User.ReactivateUser)
						ur.Put("/{userID}/department", h.Department.AssignUser)
					})
				})
			})

			pr.Route("/departments/{deptID}/teams", func(tr chi.Router) {
				tr.Post("/", h.Team.CreateTeam)
				tr.Get("/", h.Team.ListTeams)
			})

			pr.Route("/teams/{teamID}", func(tr chi.Router) {
				tr.Get("/", h.Team.GetTeam)
				tr.Put("/", h.Team.UpdateTeam)
				tr.Delete("/", h.Team.DeleteTeam)
				tr.Post("/members", h.Team.AddTeamMember)
				tr.Delete("/members/{userID}", h.Team.RemoveTeamMember)
			})

			pr.Route("/users/me", func(ur chi.Router) {
				ur.Get("/", h.User.GetCurrentUser)
				ur.Put("/", h.User.UpdateCurrentUser)
				ur.Put("/password", h.User.ChangePassword)
				ur.Post("/avatar", h.User.UploadAvatar)
				ur.Delete("/avatar", h.User.DeleteAvatar)
			})
		})
	})
}
