package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"helpem-go/internal/config"
	"helpem-go/internal/transport/httpserver/handler"
	authmw "helpem-go/internal/transport/httpserver/middleware"
	"helpem-go/pkg/logger"
)

func NewRouter(cfg config.Config, handlers *handler.Handlers, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(authmw.NewCORS([]string{"http://localhost:5173"}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)
		// Landing info for a shared invite link is public; joining is not.
		r.Get("/join/{token}", handlers.GetInviteLinkInfo)

		auth := authmw.NewJWTAuth(cfg.Auth, log)
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			r.Post("/tribes", handlers.CreateTribe)
			r.Get("/tribes", handlers.ListTribes)
			r.Get("/tribes/{tribe_id}", handlers.GetTribe)
			r.Patch("/tribes/{tribe_id}", handlers.UpdateTribe)
			r.Delete("/tribes/{tribe_id}", handlers.DeleteTribe)
			r.Get("/tribes/{tribe_id}/activity", handlers.ListActivity)

			r.Get("/tribes/{tribe_id}/members", handlers.ListMembers)
			r.Post("/tribes/{tribe_id}/members", handlers.InviteMember)
			r.Post("/tribes/{tribe_id}/members/accept", handlers.AcceptInvite)
			r.Post("/tribes/{tribe_id}/members/leave", handlers.LeaveTribe)
			r.Patch("/tribes/{tribe_id}/members/{member_id}", handlers.UpdateMember)
			r.Delete("/tribes/{tribe_id}/members/{member_id}", handlers.RemoveMember)

			r.Post("/tribes/{tribe_id}/invite-links", handlers.CreateInviteLink)
			r.Post("/join/{token}", handlers.JoinByInviteLink)

			r.Get("/tribes/{tribe_id}/member-requests", handlers.ListMemberRequests)
			r.Post("/tribes/{tribe_id}/member-requests/{request_id}/approve", handlers.ApproveMemberRequest)
			r.Post("/tribes/{tribe_id}/member-requests/{request_id}/deny", handlers.DenyMemberRequest)

			r.Post("/tribes/{tribe_id}/items", handlers.CreateSharedItem)
			r.Get("/tribes/{tribe_id}/inbox", handlers.GetInbox)
			r.Post("/tribes/{tribe_id}/proposals/{proposal_id}/accept", handlers.AcceptProposal)
			r.Post("/tribes/{tribe_id}/proposals/{proposal_id}/not-now", handlers.NotNowProposal)
			r.Post("/tribes/{tribe_id}/proposals/{proposal_id}/maybe", handlers.MaybeProposal)
			r.Delete("/tribes/{tribe_id}/proposals/{proposal_id}", handlers.DismissProposal)

			r.Get("/personal/items", handlers.ListPersonalItems)
			r.Post("/personal/items", handlers.CreatePersonalItem)
			r.Delete("/personal/items/{item_id}", handlers.DeletePersonalItem)

			r.Get("/personal/suppressions", handlers.ListSuppressions)
			r.Delete("/personal/suppressions/{origin_item_id}", handlers.Unsuppress)
		})
	})

	return r
}
