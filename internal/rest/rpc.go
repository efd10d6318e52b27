package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/rest/middleware"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/rest/request"
	"github.com/Guyuepp/Go-Clean-Architecture-Feed/internal/rest/response"
)

// RPCResponse wraps the result of a named operation
type RPCResponse struct {
	Data any `json:"data"`
}

// RPCHandler dispatches named operations to the usecases
type RPCHandler struct {
	Images   domain.ImageUsecase
	Likes    domain.LikeLedger
	Feed     domain.FeedUsecase
	validate *validator.Validate
}

func NewRPCHandler(images domain.ImageUsecase, likes domain.LikeLedger, feed domain.FeedUsecase) *RPCHandler {
	return &RPCHandler{
		Images:   images,
		Likes:    likes,
		Feed:     feed,
		validate: validator.New(),
	}
}

// Dispatch runs the operation named in the request body
func (h *RPCHandler) Dispatch(c *gin.Context) {
	var req request.RPC
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		data any
		err  error
	)
	switch req.Operation {
	case request.OpListFeed:
		data, err = h.listFeed(c, req.Variables)
	case request.OpCreateImage:
		data, err = h.createImage(c, req.Variables)
	case request.OpAddLike:
		data, err = h.addLike(c, req.Variables)
	case request.OpRemoveLike:
		data, err = h.removeLike(c, req.Variables)
	default:
		err = domain.ErrBadParamInput
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, RPCResponse{Data: data})
}

func (h *RPCHandler) listFeed(c *gin.Context, raw json.RawMessage) (any, error) {
	var vars request.ListFeed
	if err := h.bind(raw, &vars); err != nil {
		return nil, err
	}

	entries, err := h.Feed.ListFeed(c.Request.Context(), vars.Offset)
	if err != nil {
		return nil, err
	}
	return response.NewFeedFromDomain(entries), nil
}

func (h *RPCHandler) createImage(c *gin.Context, raw json.RawMessage) (any, error) {
	uid, ok := middleware.UserID(c)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	var vars request.Image
	if err := h.bind(raw, &vars); err != nil {
		return nil, err
	}

	img := vars.ToDomain(uid)
	if err := h.Images.Create(c.Request.Context(), &img); err != nil {
		return nil, err
	}
	return response.NewImageFromDomain(&img), nil
}

func (h *RPCHandler) addLike(c *gin.Context, raw json.RawMessage) (any, error) {
	uid, ok := middleware.UserID(c)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	var vars request.AddLike
	if err := h.bind(raw, &vars); err != nil {
		return nil, err
	}

	like, total, err := h.Likes.AddLike(c.Request.Context(), uid, vars.ImageID)
	if err != nil {
		return nil, err
	}
	return response.NewLikeFromDomain(&like, total), nil
}

func (h *RPCHandler) removeLike(c *gin.Context, raw json.RawMessage) (any, error) {
	uid, ok := middleware.UserID(c)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	var vars request.RemoveLike
	if err := h.bind(raw, &vars); err != nil {
		return nil, err
	}

	var (
		like  domain.Like
		total domain.LikeTotal
		err   error
	)
	switch {
	case vars.LikeID != "":
		like, total, err = h.Likes.RemoveLikeAs(c.Request.Context(), uid, vars.LikeID)
	case vars.ImageID > 0:
		like, total, err = h.Likes.RemoveLikeByPair(c.Request.Context(), uid, vars.ImageID)
	default:
		return nil, domain.ErrBadParamInput
	}
	if err != nil {
		return nil, err
	}
	return response.NewLikeFromDomain(&like, total), nil
}

// bind decodes and validates operation variables. Missing variables decode as
// the zero value.
func (h *RPCHandler) bind(raw json.RawMessage, dst any) error {
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, dst); err != nil {
			return domain.ErrBadParamInput
		}
	}
	if err := h.validate.Struct(dst); err != nil {
		return domain.ErrBadParamInput
	}
	return nil
}
