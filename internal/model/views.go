package model

type PostView struct {
	Post
	Author    User      `json:"author"`
	LikeCount int64     `json:"likeCount"`
	Hashtags  []Hashtag `json:"hashtags"`
	Mentions  []User    `json:"mentions"`
}

type CommentView struct {
	Comment
	Post      Post  `json:"post"`
	Author    User  `json:"author"`
	LikeCount int64 `json:"likeCount"`
}

type ReplyView struct {
	Reply
	Comment   Comment `json:"comment"`
	Author    User    `json:"author"`
	LikeCount int64   `json:"likeCount"`
}

type MessageView struct {
	Message
	Sender    User `json:"sender"`
	Recipient User `json:"recipient"`
}

type CampaignView struct {
	Campaign
	Partner Partner `json:"partner"`
	Vendor  Vendor  `json:"vendor"`
}

type BuyerView struct {
	Buyer
	User User `json:"user"`
}

type BannerView struct {
	Banner
	Campaign Campaign `json:"campaign"`
	Views    int64    `json:"views"`
	Clicks   int64    `json:"clicks"`
	Score    float64  `json:"score"`
}

// Relationship between a user and the user looking at them
type Relationship struct {
	UserID      int64 `json:"userId"`
	RequesterID int64 `json:"requesterId"`
	Following   bool  `json:"following"`  // requester follows user
	FollowedBy  bool  `json:"followedBy"` // user follows requester
	Blocked     bool  `json:"blocked"`    // requester blocked user
	BlockedBy   bool  `json:"blockedBy"`  // user blocked requester
	Friends     bool  `json:"friends"`
}
