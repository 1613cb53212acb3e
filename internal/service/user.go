package service

import (
	"github.com/Babadzakkkich/project-manager/internal/apperr"
	"github.com/Babadzakkkich/project-manager/internal/cascade"
	"github.com/Babadzakkkich/project-manager/internal/model"
	"github.com/Babadzakkkich/project-manager/pkg/password"
	"gorm.io/gorm"
)

type UserService struct {
	db         *gorm.DB
	membership *MembershipService
	cascade    *cascade.Coordinator
}

func NewUserService(db *gorm.DB, membership *MembershipService, coordinator *cascade.Coordinator) *UserService {
	return &UserService{db: db, membership: membership, cascade: coordinator}
}

func (s *UserService) List(keyword string, page, pageSize int) ([]model.User, int64, error) {
	query := s.db.Model(&model.User{})
	if keyword != "" {
		query = query.Where("login LIKE ? OR name LIKE ? OR email LIKE ?",
			"%"+keyword+"%", "%"+keyword+"%", "%"+keyword+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(err, "count users")
	}

	var users []model.User
	err := query.Order("id").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error
	if err != nil {
		return nil, 0, apperr.Wrap(err, "list users")
	}
	return users, total, nil
}

// Search returns active users matching a keyword, optionally excluding
// current members of a group (used by the add-members picker).
func (s *UserService) Search(keyword string, excludeGroupID *uint, limit int) ([]model.User, error) {
	query := s.db.Model(&model.User{})
	if keyword != "" {
		query = query.Where("login LIKE ? OR name LIKE ?", "%"+keyword+"%", "%"+keyword+"%")
	}
	if excludeGroupID != nil {
		query = query.Where("id NOT IN (SELECT user_id FROM group_memberships WHERE group_id = ?)", *excludeGroupID)
	}
	var users []model.User
	if err := query.Limit(limit).Find(&users).Error; err != nil {
		return nil, apperr.Wrap(err, "search users")
	}
	return users, nil
}

// GetByID returns the user together with their groups and per-group roles.
// The role is joined from the membership row into a view struct, never set
// on the user entity.
func (s *UserService) GetByID(id uint) (*model.User, []model.GroupWithRole, error) {
	var user model.User
	err := s.db.First(&user, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil, apperr.NotFound(apperr.CodeUserNotFound, "user not found")
	}
	if err != nil {
		return nil, nil, apperr.Wrap(err, "load user")
	}

	var memberships []model.GroupMembership
	err = s.db.Preload("Group").Where("user_id = ?", id).Order("group_id").Find(&memberships).Error
	if err != nil {
		return nil, nil, apperr.Wrap(err, "load memberships")
	}
	groups := make([]model.GroupWithRole, 0, len(memberships))
	for _, m := range memberships {
		if m.Group == nil {
			continue
		}
		groups = append(groups, model.GroupWithRole{
			GroupBrief: m.Group.Brief(),
			Role:       m.Role,
			JoinedAt:   m.JoinedAt,
		})
	}
	return &user, groups, nil
}

type UserUpdate struct {
	Email    *string
	Name     *string
	Password *string
}

// Update modifies a user's own fields. Allowed for the user themselves or
// a global super admin.
func (s *UserService) Update(callerID, userID uint, upd UserUpdate) (*model.User, error) {
	if callerID != userID {
		if err := s.membership.RequireGlobalSuperAdmin(nil, callerID); err != nil {
			return nil, err
		}
	}

	var user model.User
	err := s.db.First(&user, userID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFound(apperr.CodeUserNotFound, "user not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load user")
	}

	updates := map[string]interface{}{}
	if upd.Email != nil {
		var count int64
		if err := s.db.Model(&model.User{}).Where("email = ? AND id <> ?", *upd.Email, userID).Count(&count).Error; err != nil {
			return nil, apperr.Wrap(err, "check email")
		}
		if count > 0 {
			return nil, apperr.AlreadyExists("email already registered")
		}
		updates["email"] = *upd.Email
	}
	if upd.Name != nil {
		updates["name"] = *upd.Name
	}
	if upd.Password != nil {
		hash, err := password.Hash(*upd.Password)
		if err != nil {
			return nil, apperr.Wrap(err, "hash password")
		}
		updates["password_hash"] = hash
	}
	if len(updates) > 0 {
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, apperr.Wrap(err, "update user")
		}
	}
	return &user, nil
}

// Delete removes a user and everything hanging off them: assignments
// (tasks left without assignees die), memberships (groups left empty die,
// cascading further), refresh tokens and authored history. Allowed for the
// user themselves or a global super admin.
func (s *UserService) Delete(callerID, userID uint) (*cascade.Result, error) {
	if callerID != userID {
		if err := s.membership.RequireGlobalSuperAdmin(nil, callerID); err != nil {
			return nil, err
		}
	}

	var result *cascade.Result
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user model.User
		err := tx.First(&user, userID).Error
		if err == gorm.ErrRecordNotFound {
			return apperr.NotFound(apperr.CodeUserNotFound, "user not found")
		}
		if err != nil {
			return apperr.Wrap(err, "load user")
		}
		result, err = s.cascade.DeleteUser(tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
