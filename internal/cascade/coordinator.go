// Package cascade computes and applies the follow-on deletions required to
// keep the entity graph consistent: no task without assignees, no group
// without members, no project without groups. Each trigger loads the full
// affected id sets up front, then deletes bottom-up relative to the
// foreign-key dependencies, all inside the caller's transaction.
package cascade

import (
	"sort"

	"github.com/Babadzakkkich/project-manager/internal/apperr"
	"github.com/Babadzakkkich/project-manager/internal/model"
	"gorm.io/gorm"
)

type Coordinator struct{}

func New() *Coordinator { return &Coordinator{} }

// Result reports everything a cascade removed so callers can tell the
// difference between "child mutation applied" and "parent entity is gone".
type Result struct {
	DeletedTaskIDs    []uint `json:"deleted_task_ids,omitempty"`
	DeletedGroupIDs   []uint `json:"deleted_group_ids,omitempty"`
	DeletedProjectIDs []uint `json:"deleted_project_ids,omitempty"`
	DeletedUserIDs    []uint `json:"deleted_user_ids,omitempty"`
}

func (r *Result) TaskDeleted(id uint) bool    { return containsID(r.DeletedTaskIDs, id) }
func (r *Result) GroupDeleted(id uint) bool   { return containsID(r.DeletedGroupIDs, id) }
func (r *Result) ProjectDeleted(id uint) bool { return containsID(r.DeletedProjectIDs, id) }

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// plan is the affected set of one cascade, computed before any row is
// touched.
type plan struct {
	tasks    map[uint]bool
	groups   map[uint]bool
	projects map[uint]bool
	users    map[uint]bool

	// surviving-row mutations
	assignmentDrops map[uint][]uint // taskID -> userIDs to unassign
	membershipDrops map[uint][]uint // groupID -> userIDs to remove
	linkDrops       map[uint][]uint // projectID -> groupIDs to unlink
}

func newPlan() *plan {
	return &plan{
		tasks:           map[uint]bool{},
		groups:          map[uint]bool{},
		projects:        map[uint]bool{},
		users:           map[uint]bool{},
		assignmentDrops: map[uint][]uint{},
		membershipDrops: map[uint][]uint{},
		linkDrops:       map[uint][]uint{},
	}
}

// RemoveUsersFromGroup removes the given members from a group, deleting
// tasks of that group left without assignees and, if the group's
// membership empties, the group itself (recursively).
func (c *Coordinator) RemoveUsersFromGroup(tx *gorm.DB, groupID uint, userIDs []uint) (*Result, error) {
	p := newPlan()
	if err := c.planRemoveUsersFromGroup(tx, p, groupID, userIDs); err != nil {
		return nil, err
	}
	return c.apply(tx, p)
}

// DeleteGroup deletes a group, its tasks, its memberships, and every
// project left without groups.
func (c *Coordinator) DeleteGroup(tx *gorm.DB, groupID uint) (*Result, error) {
	p := newPlan()
	if err := c.planDeleteGroup(tx, p, groupID); err != nil {
		return nil, err
	}
	return c.apply(tx, p)
}

// RemoveGroupsFromProject unlinks groups from a project, deleting the
// project's tasks belonging to those groups and, if no link remains, the
// project itself.
func (c *Coordinator) RemoveGroupsFromProject(tx *gorm.DB, projectID uint, groupIDs []uint) (*Result, error) {
	p := newPlan()
	if err := c.planRemoveGroupsFromProject(tx, p, projectID, groupIDs); err != nil {
		return nil, err
	}
	return c.apply(tx, p)
}

// DeleteProject deletes a project together with its tasks and group links.
func (c *Coordinator) DeleteProject(tx *gorm.DB, projectID uint) (*Result, error) {
	p := newPlan()
	if err := c.planDeleteProject(tx, p, projectID); err != nil {
		return nil, err
	}
	return c.apply(tx, p)
}

// DeleteUser deletes a user: every assignment (cascading task deletion on
// empty assignee sets), every membership (cascading group deletion on
// empty groups), refresh tokens and authored history rows.
func (c *Coordinator) DeleteUser(tx *gorm.DB, userID uint) (*Result, error) {
	p := newPlan()
	if err := c.planDeleteUser(tx, p, userID); err != nil {
		return nil, err
	}
	return c.apply(tx, p)
}

// RemoveAssignees unassigns users from a task; an emptied task is deleted
// along with its history.
func (c *Coordinator) RemoveAssignees(tx *gorm.DB, taskID uint, userIDs []uint) (*Result, error) {
	p := newPlan()
	if err := c.planRemoveAssignees(tx, p, taskID, userIDs); err != nil {
		return nil, err
	}
	return c.apply(tx, p)
}

// --- planning ---

func (c *Coordinator) planRemoveUsersFromGroup(tx *gorm.DB, p *plan, groupID uint, userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}

	// Tasks of this group touching any removed user.
	var taskIDs []uint
	err := tx.Model(&model.TaskAssignment{}).
		Joins("JOIN tasks ON tasks.id = task_assignments.task_id").
		Where("tasks.group_id = ? AND task_assignments.user_id IN ?", groupID, userIDs).
		Distinct().
		Pluck("task_assignments.task_id", &taskIDs).Error
	if err != nil {
		return apperr.Wrap(err, "load affected tasks")
	}
	for _, taskID := range taskIDs {
		if err := c.planUnassign(tx, p, taskID, userIDs); err != nil {
			return err
		}
	}

	p.membershipDrops[groupID] = append(p.membershipDrops[groupID], userIDs...)

	var remaining int64
	err = tx.Model(&model.GroupMembership{}).
		Where("group_id = ? AND user_id NOT IN ?", groupID, userIDs).
		Count(&remaining).Error
	if err != nil {
		return apperr.Wrap(err, "count remaining members")
	}
	if remaining == 0 {
		return c.planDeleteGroup(tx, p, groupID)
	}
	return nil
}

func (c *Coordinator) planDeleteGroup(tx *gorm.DB, p *plan, groupID uint) error {
	if p.groups[groupID] {
		return nil
	}
	p.groups[groupID] = true

	var taskIDs []uint
	if err := tx.Model(&model.Task{}).Where("group_id = ?", groupID).Pluck("id", &taskIDs).Error; err != nil {
		return apperr.Wrap(err, "load group tasks")
	}
	for _, id := range taskIDs {
		p.tasks[id] = true
	}

	var projectIDs []uint
	if err := tx.Model(&model.ProjectGroup{}).Where("group_id = ?", groupID).Pluck("project_id", &projectIDs).Error; err != nil {
		return apperr.Wrap(err, "load linked projects")
	}
	for _, projectID := range projectIDs {
		if p.projects[projectID] {
			continue
		}
		p.linkDrops[projectID] = append(p.linkDrops[projectID], groupID)
		empty, err := c.projectLeftEmpty(tx, p, projectID)
		if err != nil {
			return err
		}
		if empty {
			if err := c.planDeleteProject(tx, p, projectID); err != nil {
				return err
			}
		}
	}
	return nil
}

// projectLeftEmpty reports whether a project would keep zero group links
// once every planned unlink and group deletion is applied.
func (c *Coordinator) projectLeftEmpty(tx *gorm.DB, p *plan, projectID uint) (bool, error) {
	var linked []uint
	if err := tx.Model(&model.ProjectGroup{}).Where("project_id = ?", projectID).Pluck("group_id", &linked).Error; err != nil {
		return false, apperr.Wrap(err, "load project groups")
	}
	dropped := map[uint]bool{}
	for _, g := range p.linkDrops[projectID] {
		dropped[g] = true
	}
	for _, g := range linked {
		if !p.groups[g] && !dropped[g] {
			return false, nil
		}
	}
	return true, nil
}

func (c *Coordinator) planDeleteProject(tx *gorm.DB, p *plan, projectID uint) error {
	if p.projects[projectID] {
		return nil
	}
	p.projects[projectID] = true
	delete(p.linkDrops, projectID)

	var taskIDs []uint
	if err := tx.Model(&model.Task{}).Where("project_id = ?", projectID).Pluck("id", &taskIDs).Error; err != nil {
		return apperr.Wrap(err, "load project tasks")
	}
	for _, id := range taskIDs {
		p.tasks[id] = true
	}
	return nil
}

func (c *Coordinator) planRemoveGroupsFromProject(tx *gorm.DB, p *plan, projectID uint, groupIDs []uint) error {
	if len(groupIDs) == 0 {
		return nil
	}

	var taskIDs []uint
	err := tx.Model(&model.Task{}).
		Where("project_id = ? AND group_id IN ?", projectID, groupIDs).
		Pluck("id", &taskIDs).Error
	if err != nil {
		return apperr.Wrap(err, "load tasks of removed groups")
	}
	for _, id := range taskIDs {
		p.tasks[id] = true
	}

	p.linkDrops[projectID] = append(p.linkDrops[projectID], groupIDs...)

	empty, err := c.projectLeftEmpty(tx, p, projectID)
	if err != nil {
		return err
	}
	if empty {
		return c.planDeleteProject(tx, p, projectID)
	}
	return nil
}

func (c *Coordinator) planDeleteUser(tx *gorm.DB, p *plan, userID uint) error {
	if p.users[userID] {
		return nil
	}
	p.users[userID] = true

	var taskIDs []uint
	err := tx.Model(&model.TaskAssignment{}).
		Where("user_id = ?", userID).
		Pluck("task_id", &taskIDs).Error
	if err != nil {
		return apperr.Wrap(err, "load user assignments")
	}
	for _, taskID := range taskIDs {
		if err := c.planUnassign(tx, p, taskID, []uint{userID}); err != nil {
			return err
		}
	}

	var groupIDs []uint
	err = tx.Model(&model.GroupMembership{}).
		Where("user_id = ?", userID).
		Pluck("group_id", &groupIDs).Error
	if err != nil {
		return apperr.Wrap(err, "load user memberships")
	}
	for _, groupID := range groupIDs {
		if p.groups[groupID] {
			continue
		}
		p.membershipDrops[groupID] = append(p.membershipDrops[groupID], userID)
		var remaining int64
		err = tx.Model(&model.GroupMembership{}).
			Where("group_id = ? AND user_id <> ?", groupID, userID).
			Count(&remaining).Error
		if err != nil {
			return apperr.Wrap(err, "count remaining members")
		}
		if remaining == 0 {
			if err := c.planDeleteGroup(tx, p, groupID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Coordinator) planRemoveAssignees(tx *gorm.DB, p *plan, taskID uint, userIDs []uint) error {
	return c.planUnassign(tx, p, taskID, userIDs)
}

func (c *Coordinator) planUnassign(tx *gorm.DB, p *plan, taskID uint, userIDs []uint) error {
	if p.tasks[taskID] {
		return nil
	}
	var remaining int64
	err := tx.Model(&model.TaskAssignment{}).
		Where("task_id = ? AND user_id NOT IN ?", taskID, userIDs).
		Count(&remaining).Error
	if err != nil {
		return apperr.Wrap(err, "count remaining assignees")
	}
	if remaining == 0 {
		p.tasks[taskID] = true
		delete(p.assignmentDrops, taskID)
		return nil
	}
	p.assignmentDrops[taskID] = append(p.assignmentDrops[taskID], userIDs...)
	return nil
}

// --- application ---

// apply deletes the planned rows bottom-up: history and join rows before
// owning rows, tasks before groups and projects, groups and projects
// before users.
func (c *Coordinator) apply(tx *gorm.DB, p *plan) (*Result, error) {
	taskIDs := sortedKeys(p.tasks)
	groupIDs := sortedKeys(p.groups)
	projectIDs := sortedKeys(p.projects)
	userIDs := sortedKeys(p.users)

	if len(taskIDs) > 0 {
		if err := tx.Where("task_id IN ?", taskIDs).Delete(&model.TaskHistory{}).Error; err != nil {
			return nil, apperr.Wrap(err, "delete task history")
		}
		if err := tx.Where("task_id IN ?", taskIDs).Delete(&model.TaskAssignment{}).Error; err != nil {
			return nil, apperr.Wrap(err, "delete task assignments")
		}
	}
	for taskID, uids := range p.assignmentDrops {
		if p.tasks[taskID] {
			continue
		}
		if err := tx.Where("task_id = ? AND user_id IN ?", taskID, uids).Delete(&model.TaskAssignment{}).Error; err != nil {
			return nil, apperr.Wrap(err, "remove assignees")
		}
	}
	if len(taskIDs) > 0 {
		if err := tx.Where("id IN ?", taskIDs).Delete(&model.Task{}).Error; err != nil {
			return nil, apperr.Wrap(err, "delete tasks")
		}
	}

	for groupID, uids := range p.membershipDrops {
		if p.groups[groupID] {
			continue
		}
		if err := tx.Where("group_id = ? AND user_id IN ?", groupID, uids).Delete(&model.GroupMembership{}).Error; err != nil {
			return nil, apperr.Wrap(err, "remove memberships")
		}
	}
	if len(groupIDs) > 0 {
		if err := tx.Where("group_id IN ?", groupIDs).Delete(&model.GroupMembership{}).Error; err != nil {
			return nil, apperr.Wrap(err, "delete group memberships")
		}
		if err := tx.Where("group_id IN ?", groupIDs).Delete(&model.ProjectGroup{}).Error; err != nil {
			return nil, apperr.Wrap(err, "delete group project links")
		}
	}

	for projectID, gids := range p.linkDrops {
		if p.projects[projectID] {
			continue
		}
		if err := tx.Where("project_id = ? AND group_id IN ?", projectID, gids).Delete(&model.ProjectGroup{}).Error; err != nil {
			return nil, apperr.Wrap(err, "remove project group links")
		}
	}
	if len(projectIDs) > 0 {
		if err := tx.Where("project_id IN ?", projectIDs).Delete(&model.ProjectGroup{}).Error; err != nil {
			return nil, apperr.Wrap(err, "delete project links")
		}
		if err := tx.Where("id IN ?", projectIDs).Delete(&model.Project{}).Error; err != nil {
			return nil, apperr.Wrap(err, "delete projects")
		}
	}
	if len(groupIDs) > 0 {
		if err := tx.Where("id IN ?", groupIDs).Delete(&model.Group{}).Error; err != nil {
			return nil, apperr.Wrap(err, "delete groups")
		}
	}

	if len(userIDs) > 0 {
		if err := tx.Where("user_id IN ?", userIDs).Delete(&model.TaskHistory{}).Error; err != nil {
			return nil, apperr.Wrap(err, "delete authored history")
		}
		if err := tx.Where("user_id IN ?", userIDs).Delete(&model.RefreshToken{}).Error; err != nil {
			return nil, apperr.Wrap(err, "delete refresh tokens")
		}
		if err := tx.Where("id IN ?", userIDs).Delete(&model.User{}).Error; err != nil {
			return nil, apperr.Wrap(err, "delete users")
		}
	}

	return &Result{
		DeletedTaskIDs:    taskIDs,
		DeletedGroupIDs:   groupIDs,
		DeletedProjectIDs: projectIDs,
		DeletedUserIDs:    userIDs,
	}, nil
}

func sortedKeys(m map[uint]bool) []uint {
	if len(m) == 0 {
		return nil
	}
	out := make([]uint, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
