package service

import (
	"testing"

	"github.com/Babadzakkkich/project-manager/internal/apperr"
	"github.com/Babadzakkkich/project-manager/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectCreateRequiresGroup(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	_, err := f.projects.Create(alice.ID, ProjectCreate{Title: "launch"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvariantViolation, apperr.KindOf(err))
}

func TestProjectCreateRequiresAdminInEveryGroup(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	g1 := f.group(t, "core")
	g2 := f.group(t, "platform")
	f.member(t, g1, alice, model.RoleAdmin)
	f.member(t, g2, alice, model.RoleMember)

	_, err := f.projects.Create(alice.ID, ProjectCreate{Title: "launch", GroupIDs: []uint{g1.ID, g2.ID}})
	require.Error(t, err)
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))

	p, err := f.projects.Create(alice.ID, ProjectCreate{Title: "launch", GroupIDs: []uint{g1.ID}})
	require.NoError(t, err)
	assert.Equal(t, model.ProjectStatusActive, p.Status)
	require.Len(t, p.Groups, 1)
}

func TestProjectListVisibility(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	g1 := f.group(t, "core")
	g2 := f.group(t, "platform")
	f.member(t, g1, alice, model.RoleAdmin)
	f.member(t, g2, bob, model.RoleAdmin)
	mine := f.project(t, "mine", g1)
	f.project(t, "theirs", g2)

	projects, total, err := f.projects.List(alice.ID, "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, projects, 1)
	assert.Equal(t, mine.ID, projects[0].ID)
}

func TestProjectAddGroups(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	g1 := f.group(t, "core")
	g2 := f.group(t, "platform")
	f.member(t, g1, alice, model.RoleAdmin)
	f.member(t, g2, alice, model.RoleAdmin)
	p := f.project(t, "launch", g1)

	// re-adding an existing link is a no-op
	project, err := f.projects.AddGroups(alice.ID, p.ID, []uint{g1.ID, g2.ID})
	require.NoError(t, err)
	assert.Len(t, project.Groups, 2)
	assert.EqualValues(t, 2, f.count(t, &model.ProjectGroup{}, "project_id = ?", p.ID))
}

func TestProjectRemoveGroupsKeepsProjectWithRemainingLink(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	g1 := f.group(t, "core")
	g2 := f.group(t, "platform")
	f.member(t, g1, alice, model.RoleAdmin)
	f.member(t, g2, alice, model.RoleAdmin)
	p := f.project(t, "launch", g1, g2)
	doomed := f.task(t, "core task", p, g1, alice)

	result, err := f.projects.RemoveGroups(alice.ID, p.ID, []uint{g1.ID})
	require.NoError(t, err)

	assert.False(t, result.ProjectDeleted(p.ID))
	assert.True(t, result.TaskDeleted(doomed.ID))
	assert.EqualValues(t, 1, f.count(t, &model.Project{}, "id = ?", p.ID))
}

func TestProjectRemoveLastGroupDeletesProject(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	g := f.group(t, "core")
	f.member(t, g, alice, model.RoleAdmin)
	p := f.project(t, "launch", g)

	result, err := f.projects.RemoveGroups(alice.ID, p.ID, []uint{g.ID})
	require.NoError(t, err)

	assert.True(t, result.ProjectDeleted(p.ID))
	assert.EqualValues(t, 0, f.count(t, &model.Project{}, "id = ?", p.ID))
	// the group is untouched
	assert.EqualValues(t, 1, f.count(t, &model.Group{}, "id = ?", g.ID))
}

func TestProjectRemoveGroupsNotLinked(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	g1 := f.group(t, "core")
	g2 := f.group(t, "platform")
	f.member(t, g1, alice, model.RoleAdmin)
	f.member(t, g2, alice, model.RoleAdmin)
	p := f.project(t, "launch", g1)

	_, err := f.projects.RemoveGroups(alice.ID, p.ID, []uint{g2.ID})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvariantViolation, apperr.KindOf(err))
}

func TestProjectUpdateRequiresAdminInSomeGroup(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	g := f.group(t, "core")
	f.member(t, g, alice, model.RoleAdmin)
	f.member(t, g, bob, model.RoleMember)
	p := f.project(t, "launch", g)

	title := "relaunch"
	_, err := f.projects.Update(bob.ID, p.ID, ProjectUpdate{Title: &title})
	require.Error(t, err)
	assert.Equal(t, apperr.KindPermissionDenied, apperr.KindOf(err))

	updated, err := f.projects.Update(alice.ID, p.ID, ProjectUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "relaunch", updated.Title)
}

func TestProjectDelete(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	g := f.group(t, "core")
	f.member(t, g, alice, model.RoleAdmin)
	p := f.project(t, "launch", g)
	task := f.task(t, "ship it", p, g, alice)

	result, err := f.projects.Delete(alice.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, result.ProjectDeleted(p.ID))
	assert.True(t, result.TaskDeleted(task.ID))

	_, err = f.projects.Delete(alice.ID, p.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestProjectIsVisible(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	g := f.group(t, "core")
	f.member(t, g, alice, model.RoleMember)
	created := f.project(t, "launch", g)

	p, err := f.projects.GetByID(created.ID)
	require.NoError(t, err)

	visible, err := f.projects.IsVisible(alice.ID, p)
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = f.projects.IsVisible(bob.ID, p)
	require.NoError(t, err)
	assert.False(t, visible)
}
