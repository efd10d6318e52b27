package domain

import "context"

// LikeAction is the direction of a like mutation.
type LikeAction int8

const (
	ActionLike   LikeAction = 1
	ActionUnlike LikeAction = -1
)

func (l LikeAction) String() string {
	switch l {
	case ActionLike:
		return "ADD"
	case ActionUnlike:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// EventPublisher announces completed mutations to other services.
// Publishing is best effort and never part of the mutation's outcome.
type EventPublisher interface {
	PublishLikeChanged(ctx context.Context, like Like, total LikeTotal, action LikeAction) error
	PublishImageCreated(ctx context.Context, img Image) error
}
