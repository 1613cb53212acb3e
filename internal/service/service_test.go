package service

import (
	"testing"

	"github.com/Babadzakkkich/project-manager/internal/cascade"
	"github.com/Babadzakkkich/project-manager/internal/model"
	"github.com/stretchr/testify/require"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fixture wires every service against one in-memory database.
type fixture struct {
	db         *gorm.DB
	membership *MembershipService
	auth       *AuthService
	users      *UserService
	groups     *GroupService
	projects   *ProjectService
	tasks      *TaskService
	dashboard  *DashboardService
}

func newFixture(t *testing.T) *fixture {
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

	membership := NewMembershipService(db)
	coordinator := cascade.New()
	return &fixture{
		db:         db,
		membership: membership,
		auth:       NewAuthService(db, "test-secret", 30, 30),
		users:      NewUserService(db, membership, coordinator),
		groups:     NewGroupService(db, membership, coordinator),
		projects:   NewProjectService(db, membership, coordinator),
		tasks:      NewTaskService(db, membership, coordinator),
		dashboard:  NewDashboardService(db),
	}
}

func (f *fixture) user(t *testing.T, login string) *model.User {
	t.Helper()
	u := &model.User{Login: login, Email: login + "@example.com", Name: login, PasswordHash: "x"}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) group(t *testing.T, name string) *model.Group {
	t.Helper()
	g := &model.Group{Name: name}
	require.NoError(t, f.db.Create(g).Error)
	return g
}

func (f *fixture) member(t *testing.T, g *model.Group, u *model.User, role string) {
	t.Helper()
	require.NoError(t, f.db.Create(&model.GroupMembership{GroupID: g.ID, UserID: u.ID, Role: role}).Error)
}

func (f *fixture) project(t *testing.T, title string, groups ...*model.Group) *model.Project {
	t.Helper()
	p := &model.Project{Title: title, Status: model.ProjectStatusActive}
	require.NoError(t, f.db.Create(p).Error)
	for _, g := range groups {
		require.NoError(t, f.db.Create(&model.ProjectGroup{ProjectID: p.ID, GroupID: g.ID}).Error)
	}
	return p
}

func (f *fixture) task(t *testing.T, title string, p *model.Project, g *model.Group, assignees ...*model.User) *model.Task {
	t.Helper()
	task := &model.Task{
		Title:     title,
		Status:    model.TaskStatusTodo,
		Priority:  model.TaskPriorityMedium,
		ProjectID: p.ID,
		GroupID:   g.ID,
	}
	require.NoError(t, f.db.Create(task).Error)
	for _, u := range assignees {
		require.NoError(t, f.db.Create(&model.TaskAssignment{TaskID: task.ID, UserID: u.ID}).Error)
	}
	return task
}

func (f *fixture) count(t *testing.T, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(m)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
