package request

import "encoding/json"

const (
	OpCreateImage = "createImage"
	OpAddLike     = "addLike"
	OpRemoveLike  = "removeLike"
	OpListFeed    = "listFeed"
)

// RPC is a named operation with its variables, as sent to POST /rpc.
type RPC struct {
	Operation string          `json:"operation" binding:"required,oneof=createImage addLike removeLike listFeed"`
	Variables json.RawMessage `json:"variables"`
}

type AddLike struct {
	ImageID int64 `json:"imageId" validate:"required,gt=0"`
}

// RemoveLike identifies the like by its ID, or by the caller and ImageID.
type RemoveLike struct {
	LikeID  string `json:"likeId" validate:"omitempty,uuid"`
	ImageID int64  `json:"imageId" validate:"omitempty,gt=0"`
}

type ListFeed struct {
	Offset int64 `json:"offset" validate:"gte=0"`
}
