package service

import (
	"github.com/Babadzakkkich/project-manager/internal/apperr"
	"github.com/Babadzakkkich/project-manager/internal/model"
	"gorm.io/gorm"
)

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Stats summarizes what the caller can see: their groups, the projects those
// groups are linked to, and a per-status breakdown of tasks in those groups.
type Stats struct {
	GroupCount    int64            `json:"group_count"`
	ProjectCount  int64            `json:"project_count"`
	TaskCount     int64            `json:"task_count"`
	MyTaskCount   int64            `json:"my_task_count"`
	TasksByStatus map[string]int64 `json:"tasks_by_status"`
}

func (s *DashboardService) Stats(callerID uint) (*Stats, error) {
	stats := &Stats{TasksByStatus: map[string]int64{}}

	err := s.db.Model(&model.GroupMembership{}).
		Where("user_id = ?", callerID).
		Count(&stats.GroupCount).Error
	if err != nil {
		return nil, apperr.Wrap(err, "count groups")
	}

	err = s.db.Model(&model.ProjectGroup{}).
		Where("group_id IN (SELECT group_id FROM group_memberships WHERE user_id = ?)", callerID).
		Distinct("project_id").
		Count(&stats.ProjectCount).Error
	if err != nil {
		return nil, apperr.Wrap(err, "count projects")
	}

	type statusCount struct {
		Status string
		N      int64
	}
	var rows []statusCount
	err = s.db.Model(&model.Task{}).
		Select("status, COUNT(*) AS n").
		Where("group_id IN (SELECT group_id FROM group_memberships WHERE user_id = ?)", callerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(err, "count tasks by status")
	}
	for _, r := range rows {
		stats.TasksByStatus[r.Status] = r.N
		stats.TaskCount += r.N
	}

	err = s.db.Model(&model.TaskAssignment{}).
		Where("user_id = ?", callerID).
		Count(&stats.MyTaskCount).Error
	if err != nil {
		return nil, apperr.Wrap(err, "count my tasks")
	}

	return stats, nil
}

// MyTasks returns the caller's assigned tasks, unfinished ones first.
func (s *DashboardService) MyTasks(callerID uint, page, pageSize int) ([]model.Task, int64, error) {
	query := s.db.Model(&model.Task{}).
		Where("id IN (SELECT task_id FROM task_assignments WHERE user_id = ?)", callerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(err, "count my tasks")
	}

	var tasks []model.Task
	err := query.Preload("Project").Preload("Group").
		Order("CASE WHEN status IN ('done', 'cancelled') THEN 1 ELSE 0 END, due_date IS NULL, due_date, id").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, apperr.Wrap(err, "list my tasks")
	}
	return tasks, total, nil
}
