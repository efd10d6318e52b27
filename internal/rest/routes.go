package rest

import "github.com/gin-gonic/gin"

type Handlers struct {
	Feed  *FeedHandler
	Image *ImageHandler
	Like  *LikeHandler
	RPC   *RPCHandler
}

// RegisterRoutes mounts the feed API. auth guards every write, optionalAuth
// fronts /rpc whose operations check the caller themselves.
func RegisterRoutes(route gin.IRouter, h Handlers, auth, optionalAuth gin.HandlerFunc) {
	route.GET("/feed", h.Feed.ListFeed)
	route.GET("/images/:id/likes", h.Like.Total)
	route.POST("/rpc", optionalAuth, h.RPC.Dispatch)

	authorized := route.Group("/")
	authorized.Use(auth)
	{
		authorized.POST("/images", h.Image.Create)
		authorized.POST("/images/:id/like", h.Like.Like)
		authorized.DELETE("/images/:id/like", h.Like.Unlike)
		authorized.DELETE("/likes/:id", h.Like.Remove)
	}
}
