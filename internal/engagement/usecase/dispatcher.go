package usecase

import (
	"context"

	decisiondomain "decisionlog-backend/internal/decision/domain"
	"decisionlog-backend/internal/engagement/domain"
	"decisionlog-backend/pkg/logger"
	"decisionlog-backend/pkg/mailer"
)

// DispatchStatus is the per-candidate result of a dispatch.
type DispatchStatus int

const (
	DispatchSent DispatchStatus = iota
	// DispatchDuplicate: the atomic claim lost to an earlier or concurrent send
	DispatchDuplicate
	// DispatchFailed: missing email, render, transport or log-write failure
	DispatchFailed
)

// Dispatcher claims, sends and records one notification.
type Dispatcher struct {
	guard     *IdempotencyGuard
	renderer  *Renderer
	transport mailer.Transport
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(guard *IdempotencyGuard, renderer *Renderer, transport mailer.Transport) *Dispatcher {
	return &Dispatcher{guard: guard, renderer: renderer, transport: transport}
}

// Dispatch never returns an error: every failure is confined to this
// candidate and reported through the status.
func (d *Dispatcher) Dispatch(ctx context.Context, category domain.Category, c domain.Candidate, profile *decisiondomain.Profile) DispatchStatus {
	if profile == nil || profile.Email == "" {
		logger.Warn("[Dispatcher] no email address, skipping", "type", category, "user", c.UserID)
		return DispatchFailed
	}

	msg, err := d.renderer.Render(category, c, profile)
	if err != nil {
		logger.Error("[Dispatcher] render failed", "type", category, "user", c.UserID, "err", err)
		return DispatchFailed
	}

	entry, claimed, err := d.guard.Claim(ctx, category, c)
	if err != nil {
		logger.Error("[Dispatcher] claim failed", "type", category, "user", c.UserID, "err", err)
		return DispatchFailed
	}
	if !claimed {
		logger.Debug("[Dispatcher] already claimed", "type", category, "user", c.UserID, "target", c.TargetKey())
		return DispatchDuplicate
	}

	if err := d.transport.Send(ctx, msg); err != nil {
		logger.Warn("[Dispatcher] send failed", "type", category, "user", c.UserID, "err", err)
		// Free the slot so the next scheduled run retries this target.
		if relErr := d.guard.Release(ctx, entry); relErr != nil {
			logger.Error("[Dispatcher] release failed", "type", category, "user", c.UserID, "err", relErr)
		}
		return DispatchFailed
	}

	if err := d.guard.Confirm(ctx, entry); err != nil {
		logger.Error("[Dispatcher] send log write failed", "type", category, "user", c.UserID, "err", err)
		return DispatchFailed
	}

	logger.Info("[Dispatcher] sent", "type", category, "user", c.UserID, "target", c.TargetKey())
	return DispatchSent
}
