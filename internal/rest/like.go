package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/rest/middleware"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/rest/response"
)

// LikeHandler represent the httphandler for likes
type LikeHandler struct {
	Service domain.LikeLedger
}

func NewLikeHandler(svc domain.LikeLedger) *LikeHandler {
	return &LikeHandler{
		Service: svc,
	}
}

// Like adds the caller's like to the image
func (h *LikeHandler) Like(c *gin.Context) {
	imageID, ok := imageIDParam(c)
	if !ok {
		return
	}
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	like, total, err := h.Service.AddLike(c.Request.Context(), uid, imageID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.NewLikeFromDomain(&like, total))
}

// Unlike removes the caller's like from the image
func (h *LikeHandler) Unlike(c *gin.Context) {
	imageID, ok := imageIDParam(c)
	if !ok {
		return
	}
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	like, total, err := h.Service.RemoveLikeByPair(c.Request.Context(), uid, imageID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewLikeFromDomain(&like, total))
}

// Remove removes one of the caller's likes by its ID
func (h *LikeHandler) Remove(c *gin.Context) {
	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	like, total, err := h.Service.RemoveLikeAs(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewLikeFromDomain(&like, total))
}

// Total returns the like total of the image
func (h *LikeHandler) Total(c *gin.Context) {
	imageID, ok := imageIDParam(c)
	if !ok {
		return
	}

	count, err := h.Service.TotalLikesFor(c.Request.Context(), imageID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.LikeTotal{ImageID: imageID, TotalLikes: count})
}

func imageIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, ResponseError{Message: domain.ErrNotFound.Error()})
		return 0, false
	}
	return id, true
}
