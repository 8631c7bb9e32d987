package models

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemberRole is the role a user holds inside a single project.
type MemberRole string

const (
	MemberRoleManager MemberRole = "Manager"
	MemberRoleMember  MemberRole = "Member"
)

func (r MemberRole) Valid() bool {
	return r == MemberRoleManager || r == MemberRoleMember
}

func (r *MemberRole) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if !MemberRole(s).Valid() {
		return fmt.Errorf("invalid member role %q", s)
	}
	*r = MemberRole(s)
	return nil
}

type Member struct {
	User primitive.ObjectID `bson:"user" json:"user"`
	Role MemberRole         `bson:"role" json:"role"`
}
