package services

import (
	"context"
	"time"

	"project-tracker/models"
	"project-tracker/policy"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportService struct {
	projects ProjectRepository
	tasks    TaskRepository
	users    UserRepository
	now      func() time.Time
}

func NewReportService(projects ProjectRepository, tasks TaskRepository, users UserRepository) *ReportService {
	return &ReportService{projects: projects, tasks: tasks, users: users, now: time.Now}
}

// BuildReport gathers the populated project graph for rendering. Tasks follow
// the order of the project's task list; references to tasks that no longer
// exist are skipped.
func (s *ReportService) BuildReport(ctx context.Context, actorID, projectID primitive.ObjectID) (*models.ProjectReport, error) {
	p, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := decisionErr(policy.CanRead(p, actorID)); err != nil {
		return nil, err
	}

	all, err := s.tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ordered := orderTasks(p, all)

	ids := []primitive.ObjectID{p.Owner}
	for _, m := range p.Members {
		ids = append(ids, m.User)
	}
	for _, t := range ordered {
		ids = append(ids, t.Assignee, t.Reporter)
	}
	dir, err := loadUsers(ctx, s.users, ids)
	if err != nil {
		return nil, err
	}
	lookup := dir.lookup

	now := s.now()
	report := &models.ProjectReport{
		Project:     *p,
		Owner:       lookup(p.Owner),
		Members:     make([]models.ReportMember, 0, len(p.Members)),
		Tasks:       make([]models.ReportTask, 0, len(ordered)),
		Stats:       models.ComputeStats(ordered, now),
		GeneratedAt: now.UTC(),
	}
	for _, m := range p.Members {
		report.Members = append(report.Members, models.ReportMember{User: lookup(m.User), Role: m.Role})
	}
	for _, t := range ordered {
		report.Tasks = append(report.Tasks, models.ReportTask{
			Task:     t,
			Assignee: lookup(t.Assignee),
			Reporter: lookup(t.Reporter),
			Overdue:  t.IsOverdue(now),
		})
	}
	return report, nil
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
