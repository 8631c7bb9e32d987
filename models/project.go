package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "Active"
	ProjectCompleted ProjectStatus = "Completed"
	ProjectOnHold    ProjectStatus = "On Hold"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectOnHold:
		return true
	}
	return false
}

func (s *ProjectStatus) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if !ProjectStatus(v).Valid() {
		return fmt.Errorf("invalid project status %q", v)
	}
	*s = ProjectStatus(v)
	return nil
}

type Project struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description" json:"description"`
	Owner       primitive.ObjectID   `bson:"owner" json:"owner"`
	Members     []Member             `bson:"members" json:"members"`
	Tasks       []primitive.ObjectID `bson:"tasks" json:"tasks"`
	Status      ProjectStatus        `bson:"status" json:"status"`
	StartDate   time.Time            `bson:"startDate" json:"startDate"`
	EndDate     *time.Time           `bson:"endDate,omitempty" json:"endDate,omitempty"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// FindMember returns the membership entry of userID, if any. The owner is
// only reported when present in Members.
func (p *Project) FindMember(userID primitive.ObjectID) (Member, bool) {
	for _, m := range p.Members {
		if m.User == userID {
			return m, true
		}
	}
	return Member{}, false
}

// ProjectPatch carries the fields a manager may change on a project.
type ProjectPatch struct {
	Name        *string
	Description *string
	Status      *ProjectStatus
	EndDate     *time.Time
}

func (p ProjectPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Status == nil && p.EndDate == nil
}
