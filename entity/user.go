package entity

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleStudent     Role = "student"
	RoleParent      Role = "parent"
	RoleMentor      Role = "mentor"
	RoleSchoolAdmin Role = "school_admin"
	RoleSuperAdmin  Role = "super_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleParent, RoleMentor, RoleSchoolAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

type User struct {
	ID       primitive.ObjectID  `bson:"_id" json:"id"`
	Email    string              `bson:"email" json:"email"`
	Password string              `bson:"password" json:"-"`
	Role     Role                `bson:"role" json:"role"`
	SchoolID *primitive.ObjectID `bson:"school_id,omitempty" json:"school_id,omitempty"`
	ParentID *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`

	FirstName string   `bson:"first_name" json:"first_name"`
	LastName  string   `bson:"last_name" json:"last_name"`
	Phone     string   `bson:"phone,omitempty" json:"phone,omitempty"`
	Bio       string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Grade     uint32   `bson:"grade,omitempty" json:"grade,omitempty"`
	Expertise []string `bson:"expertise,omitempty" json:"expertise,omitempty"`
	AvatarKey string   `bson:"avatar_key,omitempty" json:"-"`
	AvatarURL string   `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`

	IsVerified         bool `bson:"is_verified" json:"is_verified"`
	IsActive           bool `bson:"is_active" json:"is_active"`
	MustChangePassword bool `bson:"must_change_password" json:"must_change_password"`

	SubscriptionExpiresAt *time.Time `bson:"subscription_expires_at,omitempty" json:"subscription_expires_at,omitempty"`
	LastLoginAt           *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	CreatedAt             time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `bson:"updated_at" json:"updated_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) BelongsToSchool(id primitive.ObjectID) bool {
	return u.SchoolID != nil && *u.SchoolID == id
}
