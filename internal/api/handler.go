// Package api exposes the study groups service over a JSON HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"studygroups/internal/domain"
	"studygroups/internal/middleware"
	"studygroups/internal/service/cleanup"
	"studygroups/internal/service/groups"
	"studygroups/internal/service/membership"
)

// Handler serves the HTTP API.
type Handler struct {
	groups     *groups.Service
	membership *membership.Service
	sweeper    *cleanup.Sweeper
	logger     *slog.Logger
}

// NewHandler creates an API handler.
func NewHandler(groupsSvc *groups.Service, membershipSvc *membership.Service, sweeper *cleanup.Sweeper, logger *slog.Logger) *Handler {
	return &Handler{
		groups:     groupsSvc,
		membership: membershipSvc,
		sweeper:    sweeper,
		logger:     logger,
	}
}

// Routes builds the route tree. Authentication middleware must already have
// run so that RequireIdentity can see the verified identity.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", h.health)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/groups", func(r chi.Router) {
			r.Post("/", h.createGroup)
			r.Get("/", h.listGroups)
			r.Route("/{groupID}", func(r chi.Router) {
				r.Get("/", h.getGroup)
				r.With(middleware.RequireIdentity).Delete("/", h.deleteGroup)
				r.Post("/participants", h.joinGroup)
				r.Delete("/participants", h.leaveGroup)
				r.Get("/participants", h.listParticipants)
			})
		})
		r.With(middleware.RequireIdentity).Get("/organizer/groups", h.organizerGroups)
		r.Post("/notifications/participant-joined", h.participantJoined)
		r.With(middleware.RequireIdentity).Post("/admin/sweep", h.sweep)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createGroupBody struct {
	Subject        string    `json:"subject"`
	Description    string    `json:"description"`
	ProfessorName  string    `json:"professor_name"`
	Location       string    `json:"location"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	StudentLimit   *int      `json:"student_limit"`
	OrganizerName  string    `json:"organizer_name"`
	OrganizerEmail string    `json:"organizer_email"`
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	var body createGroupBody
	if !h.decodeJSON(w, r, &body) {
		return
	}
	created, err := h.groups.Create(r.Context(), domain.CreateGroupRequest{
		Subject:        body.Subject,
		Description:    body.Description,
		ProfessorName:  body.ProfessorName,
		Location:       body.Location,
		StartTime:      body.StartTime,
		EndTime:        body.EndTime,
		StudentLimit:   body.StudentLimit,
		OrganizerName:  body.OrganizerName,
		OrganizerEmail: body.OrganizerEmail,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	// The creator gets the organizer projection of their own group.
	h.writeJSON(w, http.StatusCreated, domain.OrganizerView(*created, 0))
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	list, err := h.groups.ListPublic(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"groups": list})
}

func (h *Handler) getGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.groups.Get(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, g)
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	if err := h.groups.Delete(r.Context(), chi.URLParam(r, "groupID"), identity); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) organizerGroups(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	list, err := h.groups.ListForOrganizer(r.Context(), identity)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"groups": list})
}

type joinBody struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handler) joinGroup(w http.ResponseWriter, r *http.Request) {
	var body joinBody
	if !h.decodeJSON(w, r, &body) {
		return
	}
	p, err := h.membership.Join(r.Context(), domain.JoinRequest{
		StudyGroupID: chi.URLParam(r, "groupID"),
		Name:         body.Name,
		Email:        body.Email,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, p)
}

type leaveBody struct {
	Email string `json:"email"`
}

func (h *Handler) leaveGroup(w http.ResponseWriter, r *http.Request) {
	var body leaveBody
	if !h.decodeJSON(w, r, &body) {
		return
	}
	if err := h.membership.Leave(r.Context(), chi.URLParam(r, "groupID"), body.Email); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listParticipants(w http.ResponseWriter, r *http.Request) {
	// A verified identity takes precedence over the self-reported email.
	requester, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		requester = r.URL.Query().Get("email")
	}
	list, err := h.membership.Participants(r.Context(), chi.URLParam(r, "groupID"), requester)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"participants": list})
}

type notifyBody struct {
	StudyGroupID     string `json:"study_group_id"`
	ParticipantName  string `json:"participant_name"`
	ParticipantEmail string `json:"participant_email"`
}

// participantJoined re-sends the join notification set. The response is 200
// whenever the group exists, even if mail delivery failed.
func (h *Handler) participantJoined(w http.ResponseWriter, r *http.Request) {
	var body notifyBody
	if !h.decodeJSON(w, r, &body) {
		return
	}
	err := h.membership.NotifyJoined(r.Context(), body.StudyGroupID, body.ParticipantName, body.ParticipantEmail)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			h.writeError(w, http.StatusNotFound, "Study group not found")
			return
		}
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	removed, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err,
		)
		message = "internal server error"
	}
	h.writeError(w, status, message)
}
