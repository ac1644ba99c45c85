/*
Package handler provides the HTTP handlers and routing setup for the relay server.

This file contains the REST API handlers: the login directory, the shareable
image catalogue, and per-identity chat history snapshots.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"relaychat/internal/app/identity"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/resp"
)

// HandleDirectory serves the bounded list of candidate identities for the login
// screen. A provider failure degrades to an empty list; the login flow still
// works with manually entered identities.
func HandleDirectory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		candidates, err := deps.Directory.Candidates(r.Context())
		if err != nil {
			logx.Warn("Directory provider unavailable. Serving empty candidate list.", "error", err.Error())
			candidates = []identity.Identity{}
		}

		resp.RespondSuccess(w, r, candidates)
	}
}

// HandleImages serves the current shareable image catalogue.
func HandleImages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		images := deps.Media.Images(r.Context())

		logx.Info("Serving image catalogue", "count", len(images))

		resp.RespondSuccess(w, r, images)
	}
}

// HandleRefreshImages re-fetches the image catalogue on demand.
func HandleRefreshImages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := deps.Media.Refresh(r.Context())
		if err != nil {
			logx.Warn("Image catalogue refresh failed.", "error", err.Error(), "fallback_count", count)
			resp.RespondError(w, r, errs.NewError(errs.ErrProviderUnavailable))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"count": count,
		})
	}
}

// HandleChatHistory serves a point-in-time copy of one identity's message log.
// The snapshot is serialized through the hub, so it never observes a fanout
// halfway through. An identity that never received anything yields an empty list.
func HandleChatHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identityID := chi.URLParam(r, "identityID")
		if identityID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		resp.RespondSuccess(w, r, deps.Hub.History(identityID))
	}
}
