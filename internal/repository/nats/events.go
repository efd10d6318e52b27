package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
)

const (
	SubjectLikeAdded    = "like.added"
	SubjectLikeRemoved  = "like.removed"
	SubjectImageCreated = "image.created"
)

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	PublishMsg(m *nats.Msg) error
}

// LikeChangedEvent is the payload of like.added and like.removed.
type LikeChangedEvent struct {
	LikeID     string    `json:"like_id"`
	UserID     int64     `json:"user_id"`
	ImageID    int64     `json:"image_id"`
	TotalLikes int64     `json:"total_likes"`
	Seq        int64     `json:"seq"`
	Action     string    `json:"action"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ImageCreatedEvent is the payload of image.created.
type ImageCreatedEvent struct {
	ImageID   int64     `json:"image_id"`
	UserID    int64     `json:"user_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type publisher struct {
	conn Conn
}

var _ domain.EventPublisher = (*publisher)(nil)

func NewPublisher(conn Conn) *publisher {
	return &publisher{conn: conn}
}

func (p *publisher) PublishLikeChanged(ctx context.Context, like domain.Like, total domain.LikeTotal, action domain.LikeAction) error {
	subject := SubjectLikeAdded
	if action == domain.ActionUnlike {
		subject = SubjectLikeRemoved
	}

	event := LikeChangedEvent{
		LikeID:     like.ID,
		UserID:     like.UserID,
		ImageID:    like.ImageID,
		TotalLikes: total.Count,
		Seq:        total.Seq,
		Action:     action.String(),
		OccurredAt: time.Now().UTC(),
	}
	// like ID plus seq is unique per mutation, which lets JetStream drop duplicates
	msgID := like.ID + ":" + strconv.FormatInt(total.Seq, 10)
	return p.publish(subject, msgID, event)
}

func (p *publisher) PublishImageCreated(ctx context.Context, img domain.Image) error {
	event := ImageCreatedEvent{
		ImageID:   img.ID,
		UserID:    img.UserID,
		URL:       img.URL,
		Title:     img.Title,
		CreatedAt: img.CreatedAt,
	}
	return p.publish(SubjectImageCreated, "image:"+strconv.FormatInt(img.ID, 10), event)
}

func (p *publisher) publish(subject, msgID string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling %s event: %w", subject, err)
	}

	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set(nats.MsgIdHdr, msgID)
	return p.conn.PublishMsg(msg)
}
