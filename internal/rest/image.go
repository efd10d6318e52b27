package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/rest/middleware"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/rest/request"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/rest/response"
)

// ImageHandler represent the httphandler for image
type ImageHandler struct {
	Service domain.ImageUsecase
}

func NewImageHandler(svc domain.ImageUsecase) *ImageHandler {
	return &ImageHandler{
		Service: svc,
	}
}

// Create will store the image by given request body
func (h *ImageHandler) Create(c *gin.Context) {
	var req request.Image
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	uid, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	img := req.ToDomain(uid)
	if err := h.Service.Create(c.Request.Context(), &img); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.NewImageFromDomain(&img))
}
