package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectView is a project with its user and task references resolved, as
// returned by the API.
type ProjectView struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Owner       UserSummary        `json:"owner"`
	Members     []MemberView       `json:"members"`
	Tasks       []TaskSummary      `json:"tasks"`
	Status      ProjectStatus      `json:"status"`
	StartDate   time.Time          `json:"startDate"`
	EndDate     *time.Time         `json:"endDate,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type MemberView struct {
	User UserSummary `json:"user"`
	Role MemberRole  `json:"role"`
}

type TaskSummary struct {
	ID       primitive.ObjectID `json:"id"`
	Title    string             `json:"title"`
	Status   TaskStatus         `json:"status"`
	Priority Priority           `json:"priority"`
	DueDate  time.Time          `json:"dueDate"`
}

type ProjectRef struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

type CommentView struct {
	ID        primitive.ObjectID `json:"id"`
	Content   string             `json:"content"`
	Author    UserSummary        `json:"author"`
	CreatedAt time.Time          `json:"createdAt"`
}

// TaskView is a task with project, people and comment authors resolved.
type TaskView struct {
	ID                   primitive.ObjectID `json:"id"`
	Title                string             `json:"title"`
	Description          string             `json:"description"`
	Project              ProjectRef         `json:"project"`
	Assignee             UserSummary        `json:"assignee"`
	Reporter             UserSummary        `json:"reporter"`
	Status               TaskStatus         `json:"status"`
	Priority             Priority           `json:"priority"`
	DueDate              time.Time          `json:"dueDate"`
	Comments             []CommentView      `json:"comments"`
	Attachments          []Attachment       `json:"attachments"`
	Tags                 []string           `json:"tags"`
	EstimatedHours       float64            `json:"estimatedHours"`
	ActualHours          float64            `json:"actualHours"`
	IsOverdue            bool               `json:"isOverdue"`
	CompletionPercentage int                `json:"completionPercentage"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

func (t Task) Summary() TaskSummary {
	return TaskSummary{ID: t.ID, Title: t.Title, Status: t.Status, Priority: t.Priority, DueDate: t.DueDate}
}
