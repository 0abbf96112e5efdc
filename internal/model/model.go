// Package model holds the records of the social and advertising platform and
// the joined views served to API consumers.
package model

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalid = errors.New("invalid record")

type User struct {
	ID          int64     `json:"id" yaml:"id"`
	Username    string    `json:"username" yaml:"username"`
	DisplayName string    `json:"displayName" yaml:"displayName"`
	AvatarURL   string    `json:"avatarUrl,omitempty" yaml:"avatarUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
}

func (u User) Validate() error {
	if u.ID <= 0 || u.Username == "" {
		return fmt.Errorf("%w: user %d", ErrInvalid, u.ID)
	}
	return nil
}

// EdgeKind is the type of a directed relation between two users
type EdgeKind string

const (
	EdgeFollow EdgeKind = "follow"
	EdgeBlock  EdgeKind = "block"
)

// Edge goes from the user who followed or blocked to the target user.
// Two users are friends when they follow each other.
type Edge struct {
	ID        int64     `json:"id" yaml:"id"`
	FromID    int64     `json:"fromId" yaml:"fromId"`
	ToID      int64     `json:"toId" yaml:"toId"`
	Kind      EdgeKind  `json:"kind" yaml:"kind"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

type Post struct {
	ID        int64     `json:"id" yaml:"id"`
	AuthorID  int64     `json:"authorId" yaml:"authorId"`
	Body      string    `json:"body" yaml:"body"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

type Comment struct {
	ID        int64     `json:"id" yaml:"id"`
	PostID    int64     `json:"postId" yaml:"postId"`
	AuthorID  int64     `json:"authorId" yaml:"authorId"`
	Body      string    `json:"body" yaml:"body"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

type Reply struct {
	ID        int64     `json:"id" yaml:"id"`
	CommentID int64     `json:"commentId" yaml:"commentId"`
	AuthorID  int64     `json:"authorId" yaml:"authorId"`
	Body      string    `json:"body" yaml:"body"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// LikeTarget is the kind of content a like points to
type LikeTarget string

const (
	LikePost    LikeTarget = "post"
	LikeComment LikeTarget = "comment"
	LikeReply   LikeTarget = "reply"
)

type Like struct {
	ID         int64      `json:"id" yaml:"id"`
	UserID     int64      `json:"userId" yaml:"userId"`
	TargetKind LikeTarget `json:"targetKind" yaml:"targetKind"`
	TargetID   int64      `json:"targetId" yaml:"targetId"`
	CreatedAt  time.Time  `json:"createdAt" yaml:"createdAt"`
}

// Mention of a user inside a post
type Mention struct {
	ID     int64 `json:"id" yaml:"id"`
	PostID int64 `json:"postId" yaml:"postId"`
	UserID int64 `json:"userId" yaml:"userId"`
}

type Hashtag struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type PostHashtag struct {
	PostID    int64 `json:"postId" yaml:"postId"`
	HashtagID int64 `json:"hashtagId" yaml:"hashtagId"`
}

type Message struct {
	ID          int64      `json:"id" yaml:"id"`
	SenderID    int64      `json:"senderId" yaml:"senderId"`
	RecipientID int64      `json:"recipientId" yaml:"recipientId"`
	Body        string     `json:"body" yaml:"body"`
	ReadAt      *time.Time `json:"readAt,omitempty" yaml:"readAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" yaml:"createdAt"`
}

// Key identifies an entity as seen by a requesting user
type Key struct {
	EntityID    int64 `json:"entityId" yaml:"entityId"`
	RequesterID int64 `json:"requesterId" yaml:"requesterId"`
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.EntityID, k.RequesterID)
}
