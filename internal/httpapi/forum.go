package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"presensi/internal/forum"
)

type postDTO struct {
	forum.Post
	CategoryLabel string `json:"category_label"`
}

func postOf(p forum.Post) postDTO {
	return postDTO{Post: p, CategoryLabel: forum.CategoryLabel(p.Category)}
}

func (h *Handler) ListPosts(c *gin.Context) {
	posts, err := h.forum.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]postDTO, 0, len(posts))
	for _, p := range posts {
		out = append(out, postOf(p))
	}
	c.JSON(http.StatusOK, gin.H{"posts": out})
}

func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.forum.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, postOf(post))
}

func (h *Handler) CreatePost(c *gin.Context) {
	var req forum.NewPost
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	post, err := h.forum.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.ForumOperations.WithLabelValues("create").Inc()
	c.Header("Location", "/v1/forum/posts/"+post.ID)
	c.JSON(http.StatusCreated, postOf(post))
}

func (h *Handler) ReplyPost(c *gin.Context) {
	var req forum.NewReply
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}
	post, err := h.forum.Reply(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.ForumOperations.WithLabelValues("reply").Inc()
	c.JSON(http.StatusCreated, postOf(post))
}

func (h *Handler) LikePost(c *gin.Context) {
	post, err := h.forum.Like(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.metrics.ForumOperations.WithLabelValues("like").Inc()
	c.JSON(http.StatusOK, postOf(post))
}
