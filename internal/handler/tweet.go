package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/service"
)

// TweetHandler manages CRUD operations and feeds for tweets.
type TweetHandler struct {
	tweets *service.TweetService
	logger *slog.Logger
}

// NewTweetHandler creates a TweetHandler.
func NewTweetHandler(tweets *service.TweetService, logger *slog.Logger) *TweetHandler {
	return &TweetHandler{tweets: tweets, logger: logger}
}

// HandleCreate posts a new tweet owned by the authenticated user.
//
// HTTP: POST /api/v1/tweets/create-tweet (auth required)
// Body: {"content": "..."}
func (h *TweetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	tweet, err := h.tweets.Create(r.Context(), user.ID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tweet)
}

// HandleUpdate edits a tweet's content. Owner only.
//
// HTTP: PATCH /api/v1/tweets/update-tweet/{tweetID} (auth required)
func (h *TweetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	tweetID := r.PathValue("tweetID")
	if tweetID == "" {
		writeError(w, apperror.ValidationFailed("tweetId", "tweet ID is required"))
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	tweet, err := h.tweets.Update(r.Context(), user.ID, tweetID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tweet)
}

// HandleDelete removes a tweet. Owner only.
//
// HTTP: DELETE /api/v1/tweets/delete-tweet/{tweetID} (auth required)
func (h *TweetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	tweetID := r.PathValue("tweetID")
	if tweetID == "" {
		writeError(w, apperror.ValidationFailed("tweetId", "tweet ID is required"))
		return
	}

	if err := h.tweets.Delete(r.Context(), user.ID, tweetID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleListUser returns the authenticated user's own tweets.
//
// HTTP: GET /api/v1/tweets/get-user-tweets?page=1&limit=10 (auth required)
func (h *TweetHandler) HandleListUser(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	page, limit := pageParams(r)
	result, err := h.tweets.ListUser(r.Context(), user.ID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleFeed returns the global feed, newest first. Works anonymously;
// when a valid token is present (OptionalAuth), each tweet additionally
// reports whether the viewer liked it.
//
// HTTP: GET /api/v1/tweets/get-all-tweets?page=1&limit=10
func (h *TweetHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	viewerID := ""
	if user, ok := auth.UserFromContext(r.Context()); ok {
		viewerID = user.ID
	}

	page, limit := pageParams(r)
	result, err := h.tweets.Feed(r.Context(), viewerID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// pageParams reads ?page and ?limit, tolerating absence and garbage — the
// service clamps the values anyway.
func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}
