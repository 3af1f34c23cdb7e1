package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/murrayju/jira-workflow-gitbot/internal/jira"
	"github.com/murrayju/jira-workflow-gitbot/internal/title"
	"github.com/murrayju/jira-workflow-gitbot/pkg/types"
)

// reconcile links the pull request to the issue named in its title and then
// syncs the issue detail. With an unchanged association only the description
// comment is refreshed unless the event is an explicit resync; assignee and
// reviewer changes arrive through their own events.
func (r *run) reconcile(ctx context.Context) {
	parsed := title.Parse(r.pr().Title, r.cfg.ProjectKey)

	cached, known, err := r.engine.store.Get(ctx, r.ref)
	if err != nil {
		r.logger.Error("failed to read association", zap.Error(err))
		return
	}

	if !known || parsed.IssueKey != cached {
		if detail := r.relink(ctx, cached, parsed); detail != nil {
			r.syncDetail(ctx, detail, parsed)
		}
		return
	}

	r.logger.Debug("association unchanged", zap.String("issue_key", cached))
	if cached == "" {
		return
	}
	detail, err := r.tracker.GetIssue(ctx, cached, r.cfg.Fields.Reviewers)
	if err != nil {
		r.logger.Warn("failed to fetch linked issue", zap.String("issue_key", cached), zap.Error(err))
		return
	}
	if r.ev.Action == types.ActionResync {
		r.syncDetail(ctx, detail, parsed)
		return
	}
	r.syncComment(ctx, detail, parsed)
}

// relink moves the pull request from the cached issue to the detected one and
// returns the detected issue's detail when it could be fetched. Once stale
// links are gone the association is cleared even if the detected issue cannot
// be fetched, so a later return to the cached key relinks it.
func (r *run) relink(ctx context.Context, cached string, parsed title.Result) *jira.IssueDetail {
	if cached != "" {
		r.deleteStaleLinks(ctx, cached)
	}

	if parsed.IssueKey == "" {
		r.comment(ctx, missingKeyMessage(r.cfg.ProjectKey))
		r.setAssociation(ctx, "")
		return nil
	}

	detail, err := r.tracker.GetIssue(ctx, parsed.IssueKey, r.cfg.Fields.Reviewers)
	if err != nil {
		if jira.IsNotFound(err) {
			r.logger.Info("issue not found", zap.String("issue_key", parsed.IssueKey))
			r.comment(ctx, notFoundMessage(parsed.IssueKey))
		} else {
			r.logger.Error("failed to fetch issue", zap.String("issue_key", parsed.IssueKey), zap.Error(err))
		}
		if cached != "" {
			r.setAssociation(ctx, "")
		}
		return nil
	}

	r.ensureLink(ctx, parsed)
	r.setAssociation(ctx, parsed.IssueKey)
	return detail
}

func (r *run) setAssociation(ctx context.Context, issueKey string) {
	if err := r.engine.store.Set(ctx, r.ref, issueKey); err != nil {
		r.logger.Error("failed to store association", zap.String("issue_key", issueKey), zap.Error(err))
	}
}

// deleteStaleLinks removes every remote link on issueKey that points at this
// pull request. Deletions run concurrently and failures are only logged.
func (r *run) deleteStaleLinks(ctx context.Context, issueKey string) {
	links, err := r.tracker.RemoteLinks(ctx, issueKey)
	if err != nil {
		r.logger.Warn("failed to list remote links of previous issue", zap.String("issue_key", issueKey), zap.Error(err))
		return
	}

	var g errgroup.Group
	for _, link := range links {
		if link.Object == nil || link.Object.URL != r.pr().HTMLURL {
			continue
		}
		self := link.Self
		g.Go(func() error {
			if err := r.tracker.DeleteRemoteLink(ctx, self); err != nil {
				r.logger.Warn("failed to delete stale remote link",
					zap.String("issue_key", issueKey),
					zap.String("link", self),
					zap.Error(err),
				)
				return nil
			}
			r.logger.Info("deleted stale remote link", zap.String("issue_key", issueKey))
			return nil
		})
	}
	_ = g.Wait()
}

// ensureLink creates the remote link back to the pull request unless one
// already exists
func (r *run) ensureLink(ctx context.Context, parsed title.Result) {
	key := parsed.IssueKey
	browseURL := r.cfg.BrowseURL(key)

	links, err := r.tracker.RemoteLinks(ctx, key)
	if err != nil {
		r.logger.Error("failed to list remote links", zap.String("issue_key", key), zap.Error(err))
		r.comment(ctx, linkFailedMessage(key, browseURL))
		return
	}
	for _, link := range links {
		if link.Object != nil && link.Object.URL == r.pr().HTMLURL {
			r.logger.Debug("remote link already exists", zap.String("issue_key", key))
			return
		}
	}

	linkTitle := fmt.Sprintf("GitHub PR #%d - %s", r.pr().Number, parsed.Description)
	if err := r.tracker.CreateRemoteLink(ctx, key, r.pr().HTMLURL, linkTitle); err != nil {
		r.logger.Error("failed to create remote link", zap.String("issue_key", key), zap.Error(err))
		r.comment(ctx, linkFailedMessage(key, browseURL))
		return
	}
	r.comment(ctx, linkedMessage(key, browseURL))
}
