package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/rest/response"
)

// FeedHandler represent the httphandler for the feed
type FeedHandler struct {
	Service domain.FeedUsecase
}

func NewFeedHandler(svc domain.FeedUsecase) *FeedHandler {
	return &FeedHandler{
		Service: svc,
	}
}

// ListFeed will fetch one page of the feed starting at the offset query param
func (h *FeedHandler) ListFeed(c *gin.Context) {
	offset := int64(0)
	if s := c.Query("offset"); s != "" {
		var err error
		offset, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ResponseError{Message: domain.ErrBadParamInput.Error()})
			return
		}
	}

	entries, err := h.Service.ListFeed(c.Request.Context(), offset)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewFeedFromDomain(entries))
}
