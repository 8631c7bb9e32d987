package models

import "time"

type TaskStats struct {
	TotalTasks          int     `json:"totalTasks"`
	CompletedTasks      int     `json:"completedTasks"`
	InProgressTasks     int     `json:"inProgressTasks"`
	TodoTasks           int     `json:"todoTasks"`
	HighPriorityTasks   int     `json:"highPriorityTasks"`
	MediumPriorityTasks int     `json:"mediumPriorityTasks"`
	LowPriorityTasks    int     `json:"lowPriorityTasks"`
	OverdueTasks        int     `json:"overdueTasks"`
	TotalEstimatedHours float64 `json:"totalEstimatedHours"`
	TotalActualHours    float64 `json:"totalActualHours"`
}

func ComputeStats(tasks []Task, now time.Time) TaskStats {
	s := TaskStats{TotalTasks: len(tasks)}
	for i := range tasks {
		t := &tasks[i]
		switch t.Status {
		case StatusCompleted:
			s.CompletedTasks++
		case StatusInProgress:
			s.InProgressTasks++
		case StatusToDo:
			s.TodoTasks++
		}
		switch t.Priority {
		case PriorityHigh:
			s.HighPriorityTasks++
		case PriorityMedium:
			s.MediumPriorityTasks++
		case PriorityLow:
			s.LowPriorityTasks++
		}
		if t.IsOverdue(now) {
			s.OverdueTasks++
		}
		s.TotalEstimatedHours += t.EstimatedHours
		s.TotalActualHours += t.ActualHours
	}
	return s
}
