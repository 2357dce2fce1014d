package model

import "time"

// Role 用户角色
type Role string

const (
	RoleOwner  Role = "Owner"  // platform owner, all permissions
	RoleStaff  Role = "Staff"  // review employee
	RoleLabel  Role = "Label"  // label or sub-label login
	RoleArtist Role = "Artist" // artist login, read only
)

// Permission is a fine grained grant carried by an actor.
type Permission string

const (
	PermSubmitReleases Permission = "releases:submit"
	PermReviewReleases Permission = "releases:review"
	PermManageLabels   Permission = "labels:manage"
	PermManageArtists  Permission = "artists:manage"
)

// PermissionList 权限列表 JSON 字段
type PermissionList []Permission

// User represents a login. Label users carry the label they act for.
type User struct {
	ID           string         `json:"id" gorm:"primaryKey;size:36"`
	Name         string         `json:"name" gorm:"size:100;not null"`
	Email        string         `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string         `json:"-" gorm:"size:255"`
	Role         Role           `json:"role" gorm:"size:20;not null"`
	LabelID      *string        `json:"labelId,omitempty" gorm:"size:36;index"`
	Permissions  PermissionList `json:"permissions" gorm:"serializer:json;type:text"`
	CreatedAt    time.Time      `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt    time.Time      `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// Actor is the identity passed in by the caller of every mutating operation.
// The core authorises against it and never authenticates it.
type Actor struct {
	UserID      string         `json:"userId"`
	Name        string         `json:"name"`
	Role        Role           `json:"role"`
	LabelID     string         `json:"labelId,omitempty"`
	Permissions PermissionList `json:"permissions,omitempty"`
}

// ActorFromUser derives the acting identity of a stored user.
func ActorFromUser(u *User) Actor {
	a := Actor{UserID: u.ID, Name: u.Name, Role: u.Role, Permissions: append(PermissionList(nil), u.Permissions...)}
	if u.LabelID != nil {
		a.LabelID = *u.LabelID
	}
	return a
}

// IsStaff reports whether the actor reviews releases on behalf of the platform.
func (a Actor) IsStaff() bool {
	return a.Role == RoleOwner || a.Role == RoleStaff
}

// Has reports whether the actor holds p. Owners hold every permission.
func (a Actor) Has(p Permission) bool {
	if a.Role == RoleOwner {
		return true
	}
	for _, v := range a.Permissions {
		if v == p {
			return true
		}
	}
	return false
}
