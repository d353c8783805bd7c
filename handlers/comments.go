package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"zenstream/models"
	"zenstream/services/comments"
)

// CommentsHandler exposes the discussion thread for a title.
type CommentsHandler struct {
	Comments *comments.Service
}

func NewCommentsHandler(svc *comments.Service) *CommentsHandler {
	return &CommentsHandler{Comments: svc}
}

type threadResponse struct {
	Comments    []models.Comment   `json:"comments"`
	Avatars     map[string]string  `json:"avatars"`
	Likes       []string           `json:"likes"`
	Dislikes    []string           `json:"dislikes"`
	Sort        models.CommentSort `json:"sort"`
	ReplyTarget string             `json:"replyTarget,omitempty"`
	Loading     bool               `json:"loading"`
}

func (h *CommentsHandler) thread(w http.ResponseWriter, r *http.Request) (*comments.Thread, bool) {
	mediaType, id, ok := pathMedia(w, r)
	if !ok {
		return nil, false
	}
	t, err := h.Comments.Open(r.Context(), id, mediaType)
	if err != nil {
		serviceError(w, err)
		return nil, false
	}
	return t, true
}

func writeThread(w http.ResponseWriter, t *comments.Thread) {
	likes, dislikes := t.Votes()
	writeJSON(w, threadResponse{
		Comments:    t.Comments(),
		Avatars:     t.Avatars(),
		Likes:       likes,
		Dislikes:    dislikes,
		Sort:        t.Sort(),
		ReplyTarget: t.ReplyTarget(),
		Loading:     t.Loading(),
	})
}

// Get opens (or returns) the thread for a title.
// GET /api/comments/{type}/{id}?sort=newest|oldest|top
func (h *CommentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := h.thread(w, r)
	if !ok {
		return
	}
	if raw := r.URL.Query().Get("sort"); raw != "" {
		sort := models.CommentSort(raw)
		if sort != t.Sort() {
			t.SetSort(r.Context(), sort)
		}
	}
	writeThread(w, t)
}

// Post submits a comment or reply.
// POST /api/comments/{type}/{id}
func (h *CommentsHandler) Post(w http.ResponseWriter, r *http.Request) {
	t, ok := h.thread(w, r)
	if !ok {
		return
	}
	var request struct {
		Content  string  `json:"content"`
		ParentID *string `json:"parentId"`
	}
	if err := decodeBody(r, &request); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := t.Post(r.Context(), request.Content, request.ParentID); err != nil {
		serviceError(w, err)
		return
	}
	writeThread(w, t)
}

// Vote toggles a like or dislike.
// POST /api/comments/{type}/{id}/vote
func (h *CommentsHandler) Vote(w http.ResponseWriter, r *http.Request) {
	t, ok := h.thread(w, r)
	if !ok {
		return
	}
	var request struct {
		CommentID string               `json:"commentId"`
		Direction models.VoteDirection `json:"direction"`
	}
	if err := decodeBody(r, &request); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := t.Vote(r.Context(), request.CommentID, request.Direction); err != nil {
		serviceError(w, err)
		return
	}
	writeThread(w, t)
}

// ReplyTarget opens or closes the inline reply composer for a comment.
// POST /api/comments/{type}/{id}/reply-target
func (h *CommentsHandler) ReplyTarget(w http.ResponseWriter, r *http.Request) {
	t, ok := h.thread(w, r)
	if !ok {
		return
	}
	var request struct {
		CommentID string `json:"commentId"`
	}
	if err := decodeBody(r, &request); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	t.SetReplyTarget(request.CommentID)
	writeJSON(w, map[string]string{"replyTarget": t.ReplyTarget()})
}

// Delete removes one of the viewer's own comments.
// DELETE /api/comments/{type}/{id}/{commentId}
func (h *CommentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	t, ok := h.thread(w, r)
	if !ok {
		return
	}
	commentID := mux.Vars(r)["commentId"]
	if err := t.Delete(r.Context(), commentID); err != nil {
		serviceError(w, err)
		return
	}
	writeThread(w, t)
}

// Release closes the thread and its live subscription when the UI navigates
// away from the title.
// POST /api/comments/{type}/{id}/release
func (h *CommentsHandler) Release(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		jsonError(w, "invalid media id", http.StatusBadRequest)
		return
	}
	h.Comments.Release(id, vars["type"])
	w.WriteHeader(http.StatusNoContent)
}
