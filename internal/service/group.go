package service

import (
	"github.com/Babadzakkkich/project-manager/internal/apperr"
	"github.com/Babadzakkkich/project-manager/internal/cascade"
	"github.com/Babadzakkkich/project-manager/internal/model"
	"gorm.io/gorm"
)

type GroupService struct {
	db         *gorm.DB
	membership *MembershipService
	cascade    *cascade.Coordinator
}

func NewGroupService(db *gorm.DB, membership *MembershipService, coordinator *cascade.Coordinator) *GroupService {
	return &GroupService{db: db, membership: membership, cascade: coordinator}
}

func (s *GroupService) List(page, pageSize int) ([]model.Group, int64, error) {
	var total int64
	if err := s.db.Model(&model.Group{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(err, "count groups")
	}
	var groups []model.Group
	err := s.db.Order("id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&groups).Error
	if err != nil {
		return nil, 0, apperr.Wrap(err, "list groups")
	}
	return groups, total, nil
}

// GetByID returns the group with its enriched read views: members carry
// their membership role, projects and tasks are the group's own.
func (s *GroupService) GetByID(id uint) (*model.Group, []model.UserWithRole, []model.Project, []model.Task, error) {
	var group model.Group
	err := s.db.First(&group, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, nil, nil, apperr.NotFound(apperr.CodeGroupNotFound, "group not found")
	}
	if err != nil {
		return nil, nil, nil, nil, apperr.Wrap(err, "load group")
	}

	var memberships []model.GroupMembership
	if err := s.db.Preload("User").Where("group_id = ?", id).Order("joined_at").Find(&memberships).Error; err != nil {
		return nil, nil, nil, nil, apperr.Wrap(err, "load members")
	}
	members := make([]model.UserWithRole, 0, len(memberships))
	for _, m := range memberships {
		if m.User == nil {
			continue
		}
		members = append(members, model.UserWithRole{
			UserBrief: m.User.Brief(),
			Role:      m.Role,
			JoinedAt:  m.JoinedAt,
		})
	}

	var projects []model.Project
	err = s.db.Joins("JOIN project_groups ON project_groups.project_id = projects.id").
		Where("project_groups.group_id = ?", id).
		Order("projects.id").
		Find(&projects).Error
	if err != nil {
		return nil, nil, nil, nil, apperr.Wrap(err, "load group projects")
	}

	var tasks []model.Task
	if err := s.db.Where("group_id = ?", id).Order("position").Find(&tasks).Error; err != nil {
		return nil, nil, nil, nil, apperr.Wrap(err, "load group tasks")
	}

	return &group, members, projects, tasks, nil
}

// Create creates a group; the creator becomes its admin in the same
// transaction, so the no-empty-group invariant holds from the start.
func (s *GroupService) Create(creatorID uint, name, description string) (*model.Group, error) {
	var count int64
	if err := s.db.Model(&model.Group{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, apperr.Wrap(err, "check group name")
	}
	if count > 0 {
		return nil, apperr.AlreadyExists("group name already taken")
	}

	group := &model.Group{Name: name, Description: description}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return apperr.Wrap(err, "create group")
		}
		member := &model.GroupMembership{
			GroupID: group.ID,
			UserID:  creatorID,
			Role:    model.RoleAdmin,
		}
		if err := tx.Create(member).Error; err != nil {
			return apperr.Wrap(err, "create membership")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (s *GroupService) Update(callerID, groupID uint, name, description *string) (*model.Group, error) {
	var group model.Group
	err := s.db.First(&group, groupID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFound(apperr.CodeGroupNotFound, "group not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load group")
	}
	if err := s.membership.RequireAdmin(nil, callerID, groupID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != nil {
		var count int64
		if err := s.db.Model(&model.Group{}).Where("name = ? AND id <> ?", *name, groupID).Count(&count).Error; err != nil {
			return nil, apperr.Wrap(err, "check group name")
		}
		if count > 0 {
			return nil, apperr.AlreadyExists("group name already taken")
		}
		updates["name"] = *name
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) > 0 {
		if err := s.db.Model(&group).Updates(updates).Error; err != nil {
			return nil, apperr.Wrap(err, "update group")
		}
	}
	return &group, nil
}

type MemberInput struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required,oneof=super_admin admin member"`
}

// AddMembers adds users with the given roles; users already in the group
// are skipped and reported.
func (s *GroupService) AddMembers(callerID, groupID uint, members []MemberInput) ([]model.UserWithRole, []uint, error) {
	var group model.Group
	err := s.db.First(&group, groupID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, apperr.NotFound(apperr.CodeGroupNotFound, "group not found")
	}
	if err != nil {
		return nil, nil, apperr.Wrap(err, "load group")
	}
	if err := s.membership.RequireAdmin(nil, callerID, groupID); err != nil {
		return nil, nil, err
	}

	var added []model.UserWithRole
	var skipped []uint
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, in := range members {
			var user model.User
			err := tx.First(&user, in.UserID).Error
			if err == gorm.ErrRecordNotFound {
				return apperr.NotFound(apperr.CodeUserNotFound, "user %d not found", in.UserID)
			}
			if err != nil {
				return apperr.Wrap(err, "load user")
			}

			var count int64
			if err := tx.Model(&model.GroupMembership{}).
				Where("group_id = ? AND user_id = ?", groupID, in.UserID).
				Count(&count).Error; err != nil {
				return apperr.Wrap(err, "check membership")
			}
			if count > 0 {
				skipped = append(skipped, in.UserID)
				continue
			}

			m := &model.GroupMembership{GroupID: groupID, UserID: in.UserID, Role: in.Role}
			if err := tx.Create(m).Error; err != nil {
				return apperr.Wrap(err, "create membership")
			}
			added = append(added, model.UserWithRole{
				UserBrief: user.Brief(),
				Role:      in.Role,
				JoinedAt:  m.JoinedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return added, skipped, nil
}

// ChangeMemberRole updates one member's role. Plain role changes need
// admin; granting or revoking super_admin needs super_admin.
func (s *GroupService) ChangeMemberRole(callerID, groupID, userID uint, newRole string) error {
	if !model.ValidRole(newRole) {
		return apperr.Validation("unknown role %q", newRole)
	}

	current, ok, err := s.membership.RoleOf(nil, userID, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound(apperr.CodeMemberNotFound, "user is not a member of the group")
	}

	if newRole == model.RoleSuperAdmin || current == model.RoleSuperAdmin {
		if err := s.membership.RequireSuperAdmin(nil, callerID, groupID); err != nil {
			return err
		}
	} else {
		if err := s.membership.RequireAdmin(nil, callerID, groupID); err != nil {
			return err
		}
	}

	result := s.db.Model(&model.GroupMembership{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Update("role", newRole)
	if result.Error != nil {
		return apperr.Wrap(result.Error, "update role")
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound(apperr.CodeMemberNotFound, "user is not a member of the group")
	}
	return nil
}

// RemoveMembers removes users from a group via the cascade coordinator.
// The returned result may report that the group itself (and dependent
// projects/tasks) vanished as a side effect.
func (s *GroupService) RemoveMembers(callerID, groupID uint, userIDs []uint) (*cascade.Result, error) {
	var result *cascade.Result
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var group model.Group
		err := tx.First(&group, groupID).Error
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFound(apperr.CodeGroupNotFound, "group not found")
		}
		if err != nil {
			return apperr.Wrap(err, "load group")
		}
		if err := s.membership.RequireAdmin(tx, callerID, groupID); err != nil {
			return err
		}

		var present int64
		if err := tx.Model(&model.GroupMembership{}).
			Where("group_id = ? AND user_id IN ?", groupID, userIDs).
			Count(&present).Error; err != nil {
			return apperr.Wrap(err, "check members")
		}
		if present == 0 {
			return apperr.NotFound(apperr.CodeMemberNotFound, "none of the users are members of the group")
		}

		result, err = s.cascade.RemoveUsersFromGroup(tx, groupID, userIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the group and cascades per the coordinator rules.
func (s *GroupService) Delete(callerID, groupID uint) (*cascade.Result, error) {
	var result *cascade.Result
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var group model.Group
		err := tx.First(&group, groupID).Error
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFound(apperr.CodeGroupNotFound, "group not found")
		}
		if err != nil {
			return apperr.Wrap(err, "load group")
		}
		if err := s.membership.RequireAdmin(tx, callerID, groupID); err != nil {
			return err
		}
		result, err = s.cascade.DeleteGroup(tx, groupID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
