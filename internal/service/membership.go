package service

import (
	"github.com/Babadzakkkich/project-manager/internal/apperr"
	"github.com/Babadzakkkich/project-manager/internal/model"
	"gorm.io/gorm"
)

// MembershipService answers role questions and gates role-protected
// operations. Every check is a pure read.
type MembershipService struct {
	db *gorm.DB
}

func NewMembershipService(db *gorm.DB) *MembershipService {
	return &MembershipService{db: db}
}

// RoleOf returns the role of a user inside a group, or ok=false when the
// user is not a member.
func (s *MembershipService) RoleOf(tx *gorm.DB, userID, groupID uint) (string, bool, error) {
	if tx == nil {
		tx = s.db
	}
	var m model.GroupMembership
	err := tx.Where("user_id = ? AND group_id = ?", userID, groupID).First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Wrap(err, "load membership")
	}
	return m.Role, true, nil
}

func (s *MembershipService) IsMember(tx *gorm.DB, userID, groupID uint) (bool, error) {
	_, ok, err := s.RoleOf(tx, userID, groupID)
	return ok, err
}

// RequireAdmin fails with NotInGroup when the user has no membership and
// with insufficient permissions when the role is plain member.
func (s *MembershipService) RequireAdmin(tx *gorm.DB, userID, groupID uint) error {
	role, ok, err := s.RoleOf(tx, userID, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.PermissionDenied(apperr.CodeNotInGroup, "user is not a member of group %d", groupID)
	}
	if role != model.RoleAdmin && role != model.RoleSuperAdmin {
		return apperr.PermissionDenied(apperr.CodePermission, "admin role required in group %d", groupID)
	}
	return nil
}

// RequireSuperAdmin is the stricter variant accepting only super_admin.
func (s *MembershipService) RequireSuperAdmin(tx *gorm.DB, userID, groupID uint) error {
	role, ok, err := s.RoleOf(tx, userID, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.PermissionDenied(apperr.CodeNotInGroup, "user is not a member of group %d", groupID)
	}
	if role != model.RoleSuperAdmin {
		return apperr.PermissionDenied(apperr.CodePermission, "super_admin role required in group %d", groupID)
	}
	return nil
}

// RequireGlobalSuperAdmin passes when the user holds super_admin in at
// least one group. Roles are group-scoped; there is no system-wide flag,
// so "global" here really means "super_admin somewhere". Callers relying
// on this should treat it accordingly.
func (s *MembershipService) RequireGlobalSuperAdmin(tx *gorm.DB, userID uint) error {
	if tx == nil {
		tx = s.db
	}
	var count int64
	err := tx.Model(&model.GroupMembership{}).
		Where("user_id = ? AND role = ?", userID, model.RoleSuperAdmin).
		Count(&count).Error
	if err != nil {
		return apperr.Wrap(err, "count super_admin memberships")
	}
	if count == 0 {
		return apperr.PermissionDenied(apperr.CodePermission, "super_admin role required")
	}
	return nil
}

// UsersShareGroup reports whether two users have at least one group in
// common.
func (s *MembershipService) UsersShareGroup(tx *gorm.DB, userA, userB uint) (bool, error) {
	if tx == nil {
		tx = s.db
	}
	var count int64
	err := tx.Model(&model.GroupMembership{}).
		Where("user_id = ? AND group_id IN (SELECT group_id FROM group_memberships WHERE user_id = ?)", userA, userB).
		Count(&count).Error
	if err != nil {
		return false, apperr.Wrap(err, "count shared groups")
	}
	return count > 0, nil
}
