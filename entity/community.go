package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Community struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	IsPrivate   bool                 `bson:"is_private" json:"is_private"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"created_by"`
	Members     []primitive.ObjectID `bson:"members" json:"members"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}

func (c *Community) HasMember(id primitive.ObjectID) bool {
	return containsID(c.Members, id)
}

type Post struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	CommunityID *primitive.ObjectID  `bson:"community_id,omitempty" json:"community_id,omitempty"`
	AuthorID    primitive.ObjectID   `bson:"author_id" json:"author_id"`
	Body        string               `bson:"body" json:"body"`
	MediaKey    string               `bson:"media_key,omitempty" json:"-"`
	MediaURL    string               `bson:"media_url,omitempty" json:"media_url,omitempty"`
	Likes       []primitive.ObjectID `bson:"likes" json:"likes"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}

func (p *Post) LikedBy(id primitive.ObjectID) bool {
	return containsID(p.Likes, id)
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
