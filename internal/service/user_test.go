package service

import (
	"testing"

	"github.com/Babadzakkkich/project-manager/internal/apperr"
	"github.com/Babadzakkkich/project-manager/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserSearchExcludesGroupMembers(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	g := f.group(t, "core")
	f.member(t, g, alice, model.RoleAdmin)

	users, err := f.users.Search("", &g.ID, 20)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, bob.ID, users[0].ID)
}

func TestUserGetByIDIncludesGroupRoles(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	g1 := f.group(t, "core")
	g2 := f.group(t, "platform")
	f.member(t, g1, alice, model.RoleAdmin)
	f.member(t, g2, alice, model.RoleMember)

	user, groups, err := f.users.GetByID(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Login)
	require.Len(t, groups, 2)
	assert.Equal(t, model.RoleAdmin, groups[0].Role)
	assert.Equal(t, model.RoleMember, groups[1].Role)
}

func TestUserUpdateSelfOnly(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	name := "Alice B"
	_, err := f.users.Update(bob.ID, alice.ID, UserUpdate{Name: &name})
	require.Error(t, err)
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))

	updated, err := f.users.Update(alice.ID, alice.ID, UserUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", updated.Name)
}

func TestUserUpdateBySuperAdmin(t *testing.T) {
	f := newFixture(t)
	super := f.user(t, "super")
	alice := f.user(t, "alice")
	g := f.group(t, "core")
	f.member(t, g, super, model.RoleSuperAdmin)

	name := "Renamed"
	_, err := f.users.Update(super.ID, alice.ID, UserUpdate{Name: &name})
	require.NoError(t, err)
}

func TestUserUpdateEmailConflict(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	f.user(t, "bob")

	email := "bob@example.com"
	_, err := f.users.Update(alice.ID, alice.ID, UserUpdate{Email: &email})
	require.Error(t, err)
	assert.Equal(t, apperr.KindAlreadyExists, apperr.KindOf(err))
}

func TestUserDeleteCascades(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	g := f.group(t, "solo")
	f.member(t, g, alice, model.RoleAdmin)
	p := f.project(t, "launch", g)
	f.task(t, "ship it", p, g, alice)

	result, err := f.users.Delete(alice.ID, alice.ID)
	require.NoError(t, err)

	assert.Contains(t, result.DeletedUserIDs, alice.ID)
	assert.True(t, result.GroupDeleted(g.ID))
	assert.True(t, result.ProjectDeleted(p.ID))
	assert.EqualValues(t, 0, f.count(t, &model.User{}, "id = ?", alice.ID))
}

func TestUserDeleteNotFound(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	_, err := f.users.Delete(alice.ID, alice.ID)
	require.NoError(t, err)

	_, err = f.users.Delete(alice.ID, alice.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	g := f.group(t, "core")
	f.member(t, g, alice, model.RoleAdmin)
	f.member(t, g, bob, model.RoleMember)
	p := f.project(t, "launch", g)
	f.task(t, "a", p, g, alice)
	f.task(t, "b", p, g, bob)

	stats, err := f.dashboard.Stats(alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.GroupCount)
	assert.EqualValues(t, 1, stats.ProjectCount)
	assert.EqualValues(t, 2, stats.TaskCount)
	assert.EqualValues(t, 1, stats.MyTaskCount)
	assert.EqualValues(t, 2, stats.TasksByStatus[model.TaskStatusTodo])
}

func TestDashboardMyTasks(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	g := f.group(t, "core")
	f.member(t, g, alice, model.RoleMember)
	f.member(t, g, bob, model.RoleMember)
	p := f.project(t, "launch", g)
	mine := f.task(t, "mine", p, g, alice)
	f.task(t, "theirs", p, g, bob)

	tasks, total, err := f.dashboard.MyTasks(alice.ID, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, tasks, 1)
	assert.Equal(t, mine.ID, tasks[0].ID)
}
