package models

import "time"

// ProjectReport is a fully populated project graph ready for rendering.
type ProjectReport struct {
	Project     Project
	Owner       UserSummary
	Members     []ReportMember
	Tasks       []ReportTask
	Stats       TaskStats
	GeneratedAt time.Time
}

type ReportMember struct {
	User UserSummary
	Role MemberRole
}

type ReportTask struct {
	Task     Task
	Assignee UserSummary
	Reporter UserSummary
	Overdue  bool
}
