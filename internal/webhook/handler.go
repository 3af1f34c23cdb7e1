// Package webhook receives GitHub pull request deliveries and hands them to a
// dispatcher as translated events.
package webhook

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"

	ghclient "github.com/murrayju/jira-workflow-gitbot/internal/github"
	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

// deduplicationWindow is how long delivery IDs are remembered. GitHub retries
// within minutes.
const deduplicationWindow = time.Hour

// Dispatcher accepts translated events for processing
type Dispatcher interface {
	Dispatch(ctx context.Context, ev types.PullRequestEvent) error
}

// Handler verifies, deduplicates and translates webhook deliveries
type Handler struct {
	secret     []byte
	dispatcher Dispatcher
	logger     *zap.Logger
	now        func() time.Time

	mu         sync.Mutex
	deliveries map[string]time.Time
}

// NewHandler creates a webhook handler. An empty secret disables signature
// verification.
func NewHandler(secret string, dispatcher Dispatcher, logger *zap.Logger) *Handler {
	return &Handler{
		secret:     []byte(secret),
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
		deliveries: make(map[string]time.Time),
	}
}

// ServeHTTP handles a single delivery
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	payload, err := github.ValidatePayload(r, h.secret)
	if err != nil {
		h.logger.Warn("webhook signature verification failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		http.Error(w, "", http.StatusUnauthorized)
		return
	}

	eventType := github.WebHookType(r)
	deliveryID := github.DeliveryID(r)
	if eventType == "" {
		http.Error(w, "missing event type", http.StatusBadRequest)
		return
	}

	if eventType != "pull_request" {
		h.logger.Debug("ignoring webhook event", zap.String("event_type", eventType), zap.String("delivery_id", deliveryID))
		w.WriteHeader(http.StatusOK)
		return
	}

	parsed, err := github.ParseWebHook(eventType, payload)
	if err != nil {
		h.logger.Error("failed to parse webhook", zap.String("delivery_id", deliveryID), zap.Error(err))
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	prEvent, ok := parsed.(*github.PullRequestEvent)
	if !ok || prEvent.GetPullRequest() == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	ev := translate(deliveryID, prEvent)
	if !ev.Action.Supported() || ev.Action == types.ActionResync {
		h.logger.Debug("ignoring pull request action", zap.String("action", string(ev.Action)), zap.String("delivery_id", deliveryID))
		w.WriteHeader(http.StatusOK)
		return
	}

	if deliveryID != "" && h.isDuplicate(deliveryID) {
		h.logger.Info("duplicate delivery ignored", zap.String("delivery_id", deliveryID))
		w.WriteHeader(http.StatusOK)
		return
	}

	h.logger.Info("webhook received",
		zap.String("delivery_id", deliveryID),
		zap.String("repo", ev.Repository.FullName()),
		zap.Int("pr_number", ev.PullRequest.Number),
		zap.String("action", string(ev.Action)),
	)
	h.logger.Debug("translated event", zap.Any("event", ev))

	if err := h.dispatcher.Dispatch(r.Context(), ev); err != nil {
		h.logger.Error("failed to dispatch event", zap.String("delivery_id", deliveryID), zap.Error(err))
		h.forget(deliveryID)
		http.Error(w, "dispatch failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// isDuplicate records a delivery ID and reports whether it was already seen
// within the window. Expired entries are pruned on every call.
func (h *Handler) isDuplicate(deliveryID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	for id, receivedAt := range h.deliveries {
		if now.Sub(receivedAt) > deduplicationWindow {
			delete(h.deliveries, id)
		}
	}

	if _, exists := h.deliveries[deliveryID]; exists {
		return true
	}
	h.deliveries[deliveryID] = now
	return false
}

// forget drops a delivery so a redelivery after a failed dispatch is processed
func (h *Handler) forget(deliveryID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.deliveries, deliveryID)
}

func translate(deliveryID string, e *github.PullRequestEvent) types.PullRequestEvent {
	ev := types.PullRequestEvent{
		DeliveryID:  deliveryID,
		Action:      types.Action(e.GetAction()),
		Repository:  ghclient.RepositoryFromAPI(e.GetRepo()),
		PullRequest: ghclient.PullRequestFromAPI(e.GetPullRequest()),
		Assignee:    e.GetAssignee().GetLogin(),
	}
	if changes := e.GetChanges(); changes != nil {
		ev.TitleChanged = changes.Title != nil
		ev.BodyChanged = changes.Body != nil
	}
	return ev
}
