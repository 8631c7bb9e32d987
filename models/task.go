package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusToDo       TaskStatus = "To-Do"
	StatusInProgress TaskStatus = "In Progress"
	StatusCompleted  TaskStatus = "Completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (s *TaskStatus) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if !TaskStatus(v).Valid() {
		return fmt.Errorf("invalid task status %q", v)
	}
	*s = TaskStatus(v)
	return nil
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (p *Priority) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if !Priority(v).Valid() {
		return fmt.Errorf("invalid priority %q", v)
	}
	*p = Priority(v)
	return nil
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Content   string             `bson:"content" json:"content"`
	Author    primitive.ObjectID `bson:"author" json:"author"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Attachment is the metadata of an uploaded file. StorageRef points into
// the backend named by Backend and is never built from client input.
type Attachment struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Filename   string             `bson:"filename" json:"filename"`
	StorageRef string             `bson:"storageRef" json:"storageRef"`
	Backend    string             `bson:"backend" json:"backend"`
	MimeType   string             `bson:"mimetype" json:"mimetype"`
	Size       int64              `bson:"size" json:"size"`
	UploadedBy primitive.ObjectID `bson:"uploadedBy" json:"uploadedBy"`
	UploadedAt time.Time          `bson:"uploadedAt" json:"uploadedAt"`
}

type Task struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title          string             `bson:"title" json:"title"`
	Description    string             `bson:"description" json:"description"`
	Project        primitive.ObjectID `bson:"project" json:"project"`
	Assignee       primitive.ObjectID `bson:"assignee" json:"assignee"`
	Reporter       primitive.ObjectID `bson:"reporter" json:"reporter"`
	Status         TaskStatus         `bson:"status" json:"status"`
	Priority       Priority           `bson:"priority" json:"priority"`
	DueDate        time.Time          `bson:"dueDate" json:"dueDate"`
	Comments       []Comment          `bson:"comments" json:"comments"`
	Attachments    []Attachment       `bson:"attachments" json:"attachments"`
	Tags           []string           `bson:"tags" json:"tags"`
	EstimatedHours float64            `bson:"estimatedHours" json:"estimatedHours"`
	ActualHours    float64            `bson:"actualHours" json:"actualHours"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsOverdue is derived, never stored.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate.Before(now) && t.Status != StatusCompleted
}

func (t *Task) CompletionPercentage() int {
	switch t.Status {
	case StatusCompleted:
		return 100
	case StatusInProgress:
		return 50
	}
	return 0
}

func (t *Task) FindAttachment(id primitive.ObjectID) (Attachment, bool) {
	for _, a := range t.Attachments {
		if a.ID == id {
			return a, true
		}
	}
	return Attachment{}, false
}

// MarshalJSON adds the derived fields, recomputed on every read.
func (t Task) MarshalJSON() ([]byte, error) {
	type task Task
	return json.Marshal(struct {
		task
		IsOverdue            bool `json:"isOverdue"`
		CompletionPercentage int  `json:"completionPercentage"`
	}{
		task:                 task(t),
		IsOverdue:            t.IsOverdue(time.Now()),
		CompletionPercentage: t.CompletionPercentage(),
	})
}

// TaskPatch holds the mutable task fields; nil means unchanged.
type TaskPatch struct {
	Title          *string
	Description    *string
	Status         *TaskStatus
	Priority       *Priority
	DueDate        *time.Time
	Assignee       *primitive.ObjectID
	Tags           *[]string
	EstimatedHours *float64
	ActualHours    *float64
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.DueDate == nil && p.Assignee == nil && p.Tags == nil && p.EstimatedHours == nil &&
		p.ActualHours == nil
}

// Apply copies the set fields onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
	if p.Tags != nil {
		t.Tags = *p.Tags
	}
	if p.EstimatedHours != nil {
		t.EstimatedHours = *p.EstimatedHours
	}
	if p.ActualHours != nil {
		t.ActualHours = *p.ActualHours
	}
}
