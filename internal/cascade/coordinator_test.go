package cascade

import (
	"errors"
	"testing"
	"time"

	"github.com/Babadzakkkich/project-manager/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Group{},
		&model.GroupMembership{},
		&model.Project{},
		&model.ProjectGroup{},
		&model.Task{},
		&model.TaskAssignment{},
		&model.TaskHistory{},
		&model.RefreshToken{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, login string) *model.User {
	t.Helper()
	u := &model.User{Login: login, Email: login + "@example.com", Name: login, PasswordHash: "x"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedGroup(t *testing.T, db *gorm.DB, name string, members ...*model.User) *model.Group {
	t.Helper()
	g := &model.Group{Name: name}
	require.NoError(t, db.Create(g).Error)
	for _, u := range members {
		m := &model.GroupMembership{GroupID: g.ID, UserID: u.ID, Role: model.RoleAdmin}
		require.NoError(t, db.Create(m).Error)
	}
	return g
}

func seedProject(t *testing.T, db *gorm.DB, title string, groups ...*model.Group) *model.Project {
	t.Helper()
	p := &model.Project{Title: title, Status: model.ProjectStatusActive}
	require.NoError(t, db.Create(p).Error)
	for _, g := range groups {
		require.NoError(t, db.Create(&model.ProjectGroup{ProjectID: p.ID, GroupID: g.ID}).Error)
	}
	return p
}

func seedTask(t *testing.T, db *gorm.DB, title string, p *model.Project, g *model.Group, assignees ...*model.User) *model.Task {
	t.Helper()
	task := &model.Task{
		Title:     title,
		Status:    model.TaskStatusTodo,
		Priority:  model.TaskPriorityMedium,
		ProjectID: p.ID,
		GroupID:   g.ID,
	}
	require.NoError(t, db.Create(task).Error)
	for _, u := range assignees {
		require.NoError(t, db.Create(&model.TaskAssignment{TaskID: task.ID, UserID: u.ID}).Error)
	}
	return task
}

func countOf(t *testing.T, db *gorm.DB, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := db.Model(m)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func TestRemoveAssigneesKeepsTaskWithRemaining(t *testing.T) {
	db := newTestDB(t)
	c := New()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	g := seedGroup(t, db, "core", alice, bob)
	p := seedProject(t, db, "launch", g)
	task := seedTask(t, db, "ship it", p, g, alice, bob)

	result, err := c.RemoveAssignees(db, task.ID, []uint{bob.ID})
	require.NoError(t, err)

	assert.False(t, result.TaskDeleted(task.ID))
	assert.Empty(t, result.DeletedTaskIDs)
	assert.EqualValues(t, 1, countOf(t, db, &model.Task{}, "id = ?", task.ID))
	assert.EqualValues(t, 1, countOf(t, db, &model.TaskAssignment{}, "task_id = ?", task.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.TaskAssignment{}, "task_id = ? AND user_id = ?", task.ID, bob.ID))
}

func TestRemoveAssigneesDeletesEmptiedTask(t *testing.T) {
	db := newTestDB(t)
	c := New()

	alice := seedUser(t, db, "alice")
	g := seedGroup(t, db, "core", alice)
	p := seedProject(t, db, "launch", g)
	task := seedTask(t, db, "ship it", p, g, alice)
	require.NoError(t, db.Create(&model.TaskHistory{
		TaskID: task.ID, UserID: alice.ID,
		Action: model.HistoryStatusChanged, OldValue: "backlog", NewValue: "todo",
	}).Error)

	result, err := c.RemoveAssignees(db, task.ID, []uint{alice.ID})
	require.NoError(t, err)

	assert.True(t, result.TaskDeleted(task.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.Task{}, "id = ?", task.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.TaskAssignment{}, "task_id = ?", task.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.TaskHistory{}, "task_id = ?", task.ID))

	// the group and project are untouched
	assert.EqualValues(t, 1, countOf(t, db, &model.Group{}, "id = ?", g.ID))
	assert.EqualValues(t, 1, countOf(t, db, &model.Project{}, "id = ?", p.ID))
}

func TestRemoveUsersFromGroupDeletesOrphanedTasks(t *testing.T) {
	db := newTestDB(t)
	c := New()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	g := seedGroup(t, db, "core", alice, bob)
	p := seedProject(t, db, "launch", g)
	solo := seedTask(t, db, "alice only", p, g, alice)
	shared := seedTask(t, db, "shared", p, g, alice, bob)

	result, err := c.RemoveUsersFromGroup(db, g.ID, []uint{alice.ID})
	require.NoError(t, err)

	assert.True(t, result.TaskDeleted(solo.ID))
	assert.False(t, result.TaskDeleted(shared.ID))
	assert.False(t, result.GroupDeleted(g.ID))

	assert.EqualValues(t, 0, countOf(t, db, &model.Task{}, "id = ?", solo.ID))
	assert.EqualValues(t, 1, countOf(t, db, &model.Task{}, "id = ?", shared.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.TaskAssignment{}, "task_id = ? AND user_id = ?", shared.ID, alice.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.GroupMembership{}, "group_id = ? AND user_id = ?", g.ID, alice.ID))
	assert.EqualValues(t, 1, countOf(t, db, &model.GroupMembership{}, "group_id = ?", g.ID))

	// alice herself survives
	assert.EqualValues(t, 1, countOf(t, db, &model.User{}, "id = ?", alice.ID))
}

func TestRemoveLastMemberDeletesGroupAndOrphanedProject(t *testing.T) {
	db := newTestDB(t)
	c := New()

	alice := seedUser(t, db, "alice")
	g := seedGroup(t, db, "core", alice)
	p := seedProject(t, db, "launch", g)
	task := seedTask(t, db, "ship it", p, g, alice)

	result, err := c.RemoveUsersFromGroup(db, g.ID, []uint{alice.ID})
	require.NoError(t, err)

	assert.True(t, result.GroupDeleted(g.ID))
	assert.True(t, result.ProjectDeleted(p.ID))
	assert.True(t, result.TaskDeleted(task.ID))

	assert.EqualValues(t, 0, countOf(t, db, &model.Group{}, ""))
	assert.EqualValues(t, 0, countOf(t, db, &model.Project{}, ""))
	assert.EqualValues(t, 0, countOf(t, db, &model.ProjectGroup{}, ""))
	assert.EqualValues(t, 0, countOf(t, db, &model.Task{}, ""))
	assert.EqualValues(t, 0, countOf(t, db, &model.GroupMembership{}, ""))
}

func TestDeleteGroupKeepsSharedProject(t *testing.T) {
	db := newTestDB(t)
	c := New()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	g1 := seedGroup(t, db, "core", alice)
	g2 := seedGroup(t, db, "platform", bob)
	p := seedProject(t, db, "launch", g1, g2)
	t1 := seedTask(t, db, "core task", p, g1, alice)
	t2 := seedTask(t, db, "platform task", p, g2, bob)

	result, err := c.DeleteGroup(db, g1.ID)
	require.NoError(t, err)

	assert.True(t, result.GroupDeleted(g1.ID))
	assert.False(t, result.ProjectDeleted(p.ID))
	assert.True(t, result.TaskDeleted(t1.ID))
	assert.False(t, result.TaskDeleted(t2.ID))

	assert.EqualValues(t, 1, countOf(t, db, &model.Project{}, "id = ?", p.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.ProjectGroup{}, "project_id = ? AND group_id = ?", p.ID, g1.ID))
	assert.EqualValues(t, 1, countOf(t, db, &model.ProjectGroup{}, "project_id = ? AND group_id = ?", p.ID, g2.ID))
	assert.EqualValues(t, 1, countOf(t, db, &model.Task{}, "id = ?", t2.ID))
}

func TestDeleteGroupDeletesOrphanedProject(t *testing.T) {
	db := newTestDB(t)
	c := New()

	alice := seedUser(t, db, "alice")
	g := seedGroup(t, db, "core", alice)
	p := seedProject(t, db, "launch", g)

	result, err := c.DeleteGroup(db, g.ID)
	require.NoError(t, err)

	assert.True(t, result.ProjectDeleted(p.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.Project{}, ""))
	assert.EqualValues(t, 0, countOf(t, db, &model.ProjectGroup{}, ""))

	// members survive the group
	assert.EqualValues(t, 1, countOf(t, db, &model.User{}, "id = ?", alice.ID))
}

func TestRemoveGroupsFromProjectDeletesGroupTasks(t *testing.T) {
	db := newTestDB(t)
	c := New()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	g1 := seedGroup(t, db, "core", alice)
	g2 := seedGroup(t, db, "platform", bob)
	p := seedProject(t, db, "launch", g1, g2)
	t1 := seedTask(t, db, "core task", p, g1, alice)
	t2 := seedTask(t, db, "platform task", p, g2, bob)

	result, err := c.RemoveGroupsFromProject(db, p.ID, []uint{g1.ID})
	require.NoError(t, err)

	assert.False(t, result.ProjectDeleted(p.ID))
	assert.True(t, result.TaskDeleted(t1.ID))
	assert.False(t, result.TaskDeleted(t2.ID))

	// the group itself is untouched, only its link and tasks of this project
	assert.EqualValues(t, 1, countOf(t, db, &model.Group{}, "id = ?", g1.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.ProjectGroup{}, "project_id = ? AND group_id = ?", p.ID, g1.ID))
}

func TestRemoveLastGroupDeletesProject(t *testing.T) {
	db := newTestDB(t)
	c := New()

	alice := seedUser(t, db, "alice")
	g := seedGroup(t, db, "core", alice)
	p := seedProject(t, db, "launch", g)
	task := seedTask(t, db, "ship it", p, g, alice)

	result, err := c.RemoveGroupsFromProject(db, p.ID, []uint{g.ID})
	require.NoError(t, err)

	assert.True(t, result.ProjectDeleted(p.ID))
	assert.True(t, result.TaskDeleted(task.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.Project{}, ""))
	assert.EqualValues(t, 1, countOf(t, db, &model.Group{}, "id = ?", g.ID))
}

func TestDeleteProject(t *testing.T) {
	db := newTestDB(t)
	c := New()

	alice := seedUser(t, db, "alice")
	g := seedGroup(t, db, "core", alice)
	p := seedProject(t, db, "launch", g)
	task := seedTask(t, db, "ship it", p, g, alice)

	result, err := c.DeleteProject(db, p.ID)
	require.NoError(t, err)

	assert.True(t, result.ProjectDeleted(p.ID))
	assert.True(t, result.TaskDeleted(task.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.Project{}, ""))
	assert.EqualValues(t, 0, countOf(t, db, &model.ProjectGroup{}, ""))
	assert.EqualValues(t, 1, countOf(t, db, &model.Group{}, "id = ?", g.ID))
}

func TestDeleteUserFullCascade(t *testing.T) {
	db := newTestDB(t)
	c := New()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	solo := seedGroup(t, db, "solo", alice)
	shared := seedGroup(t, db, "shared", alice, bob)
	soloProject := seedProject(t, db, "solo project", solo)
	sharedProject := seedProject(t, db, "shared project", shared)
	soloTask := seedTask(t, db, "solo task", soloProject, solo, alice)
	jointTask := seedTask(t, db, "joint task", sharedProject, shared, alice, bob)

	require.NoError(t, db.Create(&model.RefreshToken{
		TokenHash: "deadbeef", UserID: alice.ID, ExpiresAt: time.Now().Add(time.Hour),
	}).Error)
	require.NoError(t, db.Create(&model.TaskHistory{
		TaskID: jointTask.ID, UserID: alice.ID,
		Action: model.HistoryStatusChanged, OldValue: "backlog", NewValue: "todo",
	}).Error)

	result, err := c.DeleteUser(db, alice.ID)
	require.NoError(t, err)

	assert.Contains(t, result.DeletedUserIDs, alice.ID)
	assert.True(t, result.GroupDeleted(solo.ID))
	assert.False(t, result.GroupDeleted(shared.ID))
	assert.True(t, result.ProjectDeleted(soloProject.ID))
	assert.False(t, result.ProjectDeleted(sharedProject.ID))
	assert.True(t, result.TaskDeleted(soloTask.ID))
	assert.False(t, result.TaskDeleted(jointTask.ID))

	assert.EqualValues(t, 0, countOf(t, db, &model.User{}, "id = ?", alice.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.RefreshToken{}, "user_id = ?", alice.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.TaskHistory{}, "user_id = ?", alice.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.TaskAssignment{}, "user_id = ?", alice.ID))
	assert.EqualValues(t, 0, countOf(t, db, &model.GroupMembership{}, "user_id = ?", alice.ID))

	// bob's world is intact
	assert.EqualValues(t, 1, countOf(t, db, &model.Task{}, "id = ?", jointTask.ID))
	assert.EqualValues(t, 1, countOf(t, db, &model.GroupMembership{}, "group_id = ? AND user_id = ?", shared.ID, bob.ID))
}

func TestCascadeRollsBackWithCallerTransaction(t *testing.T) {
	db := newTestDB(t)
	c := New()

	alice := seedUser(t, db, "alice")
	g := seedGroup(t, db, "core", alice)
	p := seedProject(t, db, "launch", g)
	seedTask(t, db, "ship it", p, g, alice)

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := c.DeleteGroup(tx, g.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.EqualValues(t, 1, countOf(t, db, &model.Group{}, "id = ?", g.ID))
	assert.EqualValues(t, 1, countOf(t, db, &model.Project{}, "id = ?", p.ID))
	assert.EqualValues(t, 1, countOf(t, db, &model.Task{}, "group_id = ?", g.ID))
}
