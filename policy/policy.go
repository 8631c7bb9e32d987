// Package policy decides who may read or change a project and the tasks and
// attachments that hang off it. Handlers and services never compare roles
// themselves; they ask for a Decision and translate it at the boundary.
package policy

import (
	"project-tracker/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Decision int

const (
	Allow Decision = iota
	DenyNotFound
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyNotFound:
		return "deny-not-found"
	case DenyForbidden:
		return "deny-forbidden"
	}
	return "unknown"
}

func (d Decision) Allowed() bool { return d == Allow }

// IsMember reports whether userID is the owner or appears in the members list.
func IsMember(p *models.Project, userID primitive.ObjectID) bool {
	if p == nil || userID.IsZero() {
		return false
	}
	if p.Owner == userID {
		return true
	}
	_, ok := p.FindMember(userID)
	return ok
}

// IsManager reports whether userID is the owner or a member with the Manager role.
func IsManager(p *models.Project, userID primitive.ObjectID) bool {
	if p == nil || userID.IsZero() {
		return false
	}
	if p.Owner == userID {
		return true
	}
	m, ok := p.FindMember(userID)
	return ok && m.Role == models.MemberRoleManager
}

func IsOwner(p *models.Project, userID primitive.ObjectID) bool {
	return p != nil && !userID.IsZero() && p.Owner == userID
}

func decide(p *models.Project, ok bool) Decision {
	if p == nil {
		return DenyNotFound
	}
	if !ok {
		return DenyForbidden
	}
	return Allow
}

// CanRead covers reading a project, its tasks, stats and reports, and
// creating tasks or comments inside it.
func CanRead(p *models.Project, userID primitive.ObjectID) Decision {
	return decide(p, IsMember(p, userID))
}

// CanManage covers project edits, membership changes and task deletion.
func CanManage(p *models.Project, userID primitive.ObjectID) Decision {
	return decide(p, IsManager(p, userID))
}

func CanDeleteProject(p *models.Project, userID primitive.ObjectID) Decision {
	return decide(p, IsOwner(p, userID))
}

// CanEditTask allows the assignee, the reporter and project managers. The
// task must belong to p; a mismatch is treated as not found.
func CanEditTask(p *models.Project, t *models.Task, userID primitive.ObjectID) Decision {
	if p == nil || t == nil || t.Project != p.ID {
		return DenyNotFound
	}
	if !IsMember(p, userID) {
		return DenyForbidden
	}
	if t.Assignee == userID || t.Reporter == userID || IsManager(p, userID) {
		return Allow
	}
	return DenyForbidden
}

// CanDeleteAttachment allows the uploader and project managers.
func CanDeleteAttachment(p *models.Project, a models.Attachment, userID primitive.ObjectID) Decision {
	if p == nil {
		return DenyNotFound
	}
	if !IsMember(p, userID) {
		return DenyForbidden
	}
	if a.UploadedBy == userID || IsManager(p, userID) {
		return Allow
	}
	return DenyForbidden
}
