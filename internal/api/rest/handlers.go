package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/murrayju/jira-workflow-gitbot/internal/store"
	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

// PullRequests fetches the current state of a pull request
type PullRequests interface {
	GetPullRequest(ctx context.Context, ref types.PullRequestRef) (types.PullRequest, error)
}

// Dispatcher accepts events for processing
type Dispatcher interface {
	Dispatch(ctx context.Context, ev types.PullRequestEvent) error
}

// Handler handles REST API requests
type Handler struct {
	associations store.Store
	pulls        PullRequests
	dispatcher   Dispatcher
	logger       *zap.Logger
}

// NewHandler creates a new REST handler
func NewHandler(associations store.Store, pulls PullRequests, dispatcher Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{
		associations: associations,
		pulls:        pulls,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// AssociationResponse represents the stored association of a pull request
type AssociationResponse struct {
	PullRequest string `json:"pull_request"`
	IssueKey    string `json:"issue_key"`
	Linked      bool   `json:"linked"`
	Reconciled  bool   `json:"reconciled"`
}

// ResyncResponse represents the response from requesting a resync
type ResyncResponse struct {
	DeliveryID string `json:"delivery_id"`
	Status     string `json:"status"`
}

// GetAssociation handles GET /repos/{owner}/{repo}/pulls/{number}/association
func (h *Handler) GetAssociation(w http.ResponseWriter, r *http.Request) {
	ref, ok := pullRequestRef(w, r)
	if !ok {
		return
	}

	key, reconciled, err := h.associations.Get(r.Context(), ref)
	if err != nil {
		h.logger.Error("failed to read association", zap.String("pull_request", ref.String()), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, AssociationResponse{
		PullRequest: ref.String(),
		IssueKey:    key,
		Linked:      key != "",
		Reconciled:  reconciled,
	})
}

// Resync handles POST /repos/{owner}/{repo}/pulls/{number}/resync
func (h *Handler) Resync(w http.ResponseWriter, r *http.Request) {
	ref, ok := pullRequestRef(w, r)
	if !ok {
		return
	}

	pr, err := h.pulls.GetPullRequest(r.Context(), ref)
	if err != nil {
		h.logger.Error("failed to fetch pull request", zap.String("pull_request", ref.String()), zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	ev := types.PullRequestEvent{
		DeliveryID:  "resync-" + uuid.New().String(),
		Action:      types.ActionResync,
		Repository:  ref.Repository,
		PullRequest: pr,
	}
	if err := h.dispatcher.Dispatch(r.Context(), ev); err != nil {
		h.logger.Error("failed to dispatch resync", zap.String("pull_request", ref.String()), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, ResyncResponse{
		DeliveryID: ev.DeliveryID,
		Status:     "dispatched",
	})
}

// RegisterRoutes registers REST API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/repos/{owner}/{repo}/pulls/{number}", func(r chi.Router) {
		r.Get("/association", h.GetAssociation)
		r.Post("/resync", h.Resync)
	})
}

func pullRequestRef(w http.ResponseWriter, r *http.Request) (types.PullRequestRef, bool) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number <= 0 {
		http.Error(w, "invalid pull request number", http.StatusBadRequest)
		return types.PullRequestRef{}, false
	}
	return types.PullRequestRef{
		Repository: types.Repository{
			Owner: chi.URLParam(r, "owner"),
			Name:  chi.URLParam(r, "repo"),
		},
		Number: number,
	}, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
