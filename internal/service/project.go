package service

import (
	"time"

	"github.com/Babadzakkkich/project-manager/internal/apperr"
	"github.com/Babadzakkkich/project-manager/internal/cascade"
	"github.com/Babadzakkkich/project-manager/internal/model"
	"gorm.io/gorm"
)

type ProjectService struct {
	db         *gorm.DB
	membership *MembershipService
	cascade    *cascade.Coordinator
}

func NewProjectService(db *gorm.DB, membership *MembershipService, coordinator *cascade.Coordinator) *ProjectService {
	return &ProjectService{db: db, membership: membership, cascade: coordinator}
}

// List returns projects visible to the caller: those linked to at least
// one of the caller's groups.
func (s *ProjectService) List(callerID uint, status string, page, pageSize int) ([]model.Project, int64, error) {
	query := s.db.Model(&model.Project{}).
		Where("id IN (SELECT project_id FROM project_groups WHERE group_id IN (SELECT group_id FROM group_memberships WHERE user_id = ?))", callerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(err, "count projects")
	}

	var projects []model.Project
	err := query.Preload("Groups").Order("id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&projects).Error
	if err != nil {
		return nil, 0, apperr.Wrap(err, "list projects")
	}
	return projects, total, nil
}

func (s *ProjectService) GetByID(id uint) (*model.Project, error) {
	var project model.Project
	err := s.db.Preload("Groups").Preload("Tasks").First(&project, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFound(apperr.CodeProjectNotFound, "project not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load project")
	}
	return &project, nil
}

type ProjectCreate struct {
	Title       string
	Description string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      string
	GroupIDs    []uint
}

// Create requires at least one group and admin role in every referenced
// group.
func (s *ProjectService) Create(callerID uint, in ProjectCreate) (*model.Project, error) {
	if len(in.GroupIDs) == 0 {
		return nil, apperr.Invariant("project requires at least one group")
	}
	for _, groupID := range in.GroupIDs {
		var count int64
		if err := s.db.Model(&model.Group{}).Where("id = ?", groupID).Count(&count).Error; err != nil {
			return nil, apperr.Wrap(err, "check group")
		}
		if count == 0 {
			return nil, apperr.NotFound(apperr.CodeGroupNotFound, "group %d not found", groupID)
		}
		if err := s.membership.RequireAdmin(nil, callerID, groupID); err != nil {
			return nil, err
		}
	}

	status := in.Status
	if status == "" {
		status = model.ProjectStatusActive
	}
	project := &model.Project{
		Title:       in.Title,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Status:      status,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return apperr.Wrap(err, "create project")
		}
		for _, groupID := range in.GroupIDs {
			link := &model.ProjectGroup{ProjectID: project.ID, GroupID: groupID}
			if err := tx.Create(link).Error; err != nil {
				return apperr.Wrap(err, "link group")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(project.ID)
}

type ProjectUpdate struct {
	Title       *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      *string
}

// Update requires admin in at least one of the project's groups.
func (s *ProjectService) Update(callerID, projectID uint, upd ProjectUpdate) (*model.Project, error) {
	project, err := s.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireProjectAdmin(callerID, project); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if upd.Title != nil {
		updates["title"] = *upd.Title
	}
	if upd.Description != nil {
		updates["description"] = *upd.Description
	}
	if upd.StartDate != nil {
		updates["start_date"] = *upd.StartDate
	}
	if upd.EndDate != nil {
		updates["end_date"] = *upd.EndDate
	}
	if upd.Status != nil {
		updates["status"] = *upd.Status
	}
	if len(updates) > 0 {
		if err := s.db.Model(&model.Project{}).Where("id = ?", projectID).Updates(updates).Error; err != nil {
			return nil, apperr.Wrap(err, "update project")
		}
	}
	return s.GetByID(projectID)
}

// AddGroups links additional groups; the caller must be admin in each
// group being added.
func (s *ProjectService) AddGroups(callerID, projectID uint, groupIDs []uint) (*model.Project, error) {
	project, err := s.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	for _, groupID := range groupIDs {
		var count int64
		if err := s.db.Model(&model.Group{}).Where("id = ?", groupID).Count(&count).Error; err != nil {
			return nil, apperr.Wrap(err, "check group")
		}
		if count == 0 {
			return nil, apperr.NotFound(apperr.CodeGroupNotFound, "group %d not found", groupID)
		}
		if err := s.membership.RequireAdmin(nil, callerID, groupID); err != nil {
			return nil, err
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, groupID := range groupIDs {
			var count int64
			if err := tx.Model(&model.ProjectGroup{}).
				Where("project_id = ? AND group_id = ?", project.ID, groupID).
				Count(&count).Error; err != nil {
				return apperr.Wrap(err, "check link")
			}
			if count > 0 {
				continue
			}
			if err := tx.Create(&model.ProjectGroup{ProjectID: project.ID, GroupID: groupID}).Error; err != nil {
				return apperr.Wrap(err, "link group")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(projectID)
}

// RemoveGroups unlinks groups from a project through the cascade
// coordinator; tasks of removed groups die and the project itself may
// vanish when its last link goes.
func (s *ProjectService) RemoveGroups(callerID, projectID uint, groupIDs []uint) (*cascade.Result, error) {
	for _, groupID := range groupIDs {
		if err := s.membership.RequireAdmin(nil, callerID, groupID); err != nil {
			return nil, err
		}
	}

	var result *cascade.Result
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var project model.Project
		err := tx.First(&project, projectID).Error
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFound(apperr.CodeProjectNotFound, "project not found")
		}
		if err != nil {
			return apperr.Wrap(err, "load project")
		}

		var linked int64
		if err := tx.Model(&model.ProjectGroup{}).
			Where("project_id = ? AND group_id IN ?", projectID, groupIDs).
			Count(&linked).Error; err != nil {
			return apperr.Wrap(err, "check links")
		}
		if linked == 0 {
			return apperr.Invariant("none of the groups are linked to the project")
		}

		result, err = s.cascade.RemoveGroupsFromProject(tx, projectID, groupIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the project, its tasks and group links.
func (s *ProjectService) Delete(callerID, projectID uint) (*cascade.Result, error) {
	project, err := s.GetByID(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireProjectAdmin(callerID, project); err != nil {
		return nil, err
	}

	var result *cascade.Result
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
			return apperr.Wrap(err, "check project")
		}
		if count == 0 {
			return apperr.NotFound(apperr.CodeProjectNotFound, "project not found")
		}
		result, err = s.cascade.DeleteProject(tx, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IsVisible reports whether the caller shares a group with the project.
func (s *ProjectService) IsVisible(callerID uint, project *model.Project) (bool, error) {
	for _, g := range project.Groups {
		ok, err := s.membership.IsMember(nil, callerID, g.ID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// requireProjectAdmin passes when the caller is admin in at least one of
// the project's linked groups.
func (s *ProjectService) requireProjectAdmin(callerID uint, project *model.Project) error {
	var lastErr error
	for _, g := range project.Groups {
		err := s.membership.RequireAdmin(nil, callerID, g.ID)
		if err == nil {
			return nil
		}
		if apperr.KindOf(err) != apperr.KindPermissionDenied {
			return err
		}
		lastErr = err
	}
	if lastErr != nil {
		return lastErr
	}
	return apperr.PermissionDenied(apperr.CodePermission, "admin role required in a project group")
}
