package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/service"
)

// LikeHandler manages like toggling and like-based reads.
type LikeHandler struct {
	likes  *service.LikeService
	logger *slog.Logger
}

// NewLikeHandler creates a LikeHandler.
func NewLikeHandler(likes *service.LikeService, logger *slog.Logger) *LikeHandler {
	return &LikeHandler{likes: likes, logger: logger}
}

// HandleToggle likes or unlikes a tweet for the authenticated user.
//
// HTTP: POST /api/v1/likes/toggle-tweet-like/{tweetID} (auth required)
func (h *LikeHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	status, err := h.likes.Toggle(r.Context(), user.ID, r.PathValue("tweetID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// HandleLikedTweets returns the tweets the authenticated user liked.
//
// HTTP: GET /api/v1/likes/get-liked-tweets?page=1&limit=10 (auth required)
func (h *LikeHandler) HandleLikedTweets(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	page, limit := pageParams(r)
	result, err := h.likes.LikedTweets(r.Context(), user.ID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleCount returns the like count for one tweet.
//
// HTTP: GET /api/v1/likes/get-tweet-likes-count/{tweetID} (auth required)
func (h *LikeHandler) HandleCount(w http.ResponseWriter, r *http.Request) {
	status, err := h.likes.Count(r.Context(), r.PathValue("tweetID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}
