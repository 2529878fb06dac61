package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/chezmonami/marketplace-server/internal/audit"
	"github.com/chezmonami/marketplace-server/internal/errors"
	"github.com/chezmonami/marketplace-server/internal/model"
	"github.com/chezmonami/marketplace-server/internal/repository"
	"github.com/chezmonami/marketplace-server/internal/session"
	"github.com/chezmonami/marketplace-server/internal/storage"
	"github.com/chezmonami/marketplace-server/internal/util"
)

// StorageFactory builds the persisted store for a scope. Each admin
// session gets its own scope so its credential blob and clocks are
// isolated from every other session.
type StorageFactory func(scope string) storage.Store

type AdminService struct {
	adminRepo     repository.AdminRepository
	registry      *session.Registry
	newStorage    StorageFactory
	validate      *validator.Validate
	sessionSecret string
}

func NewAdminService(
	adminRepo repository.AdminRepository,
	registry *session.Registry,
	newStorage StorageFactory,
	sessionSecret string,
) *AdminService {
	return &AdminService{
		adminRepo:     adminRepo,
		registry:      registry,
		newStorage:    newStorage,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		sessionSecret: sessionSecret,
	}
}

// LoginResult carries the minted session back to the handler. Token is
// the client-held secret; Scope addresses the session's storage.
type LoginResult struct {
	Admin *model.Admin
	Token string
	Scope string
}

// Login verifies the credentials and mints a session: an identity blob
// plus both session clocks written to a fresh scope, with a running
// guard adopted for it.
func (s *AdminService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	admin, err := s.adminRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, errors.Database(err)
	}
	if admin == nil || !util.CheckPasswordHash(password, admin.PasswordHash) {
		audit.Log(ctx, audit.Event{
			Type:      audit.EventLoginFailure,
			IP:        ip,
			UserAgent: userAgent,
			Details:   map[string]interface{}{"email": email},
		})
		return nil, errors.Unauthorized("invalid credentials")
	}

	token, err := util.GenerateToken()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "generate session token", err)
	}
	scope := util.HmacSHA256(s.sessionSecret, token)

	identity := session.Identity{
		ID:                 admin.ID,
		Name:               admin.Name,
		Email:              admin.Email,
		Role:               session.Role(admin.Role),
		MustChangePassword: admin.MustChangePassword,
		Token:              token,
	}
	blob, err := json.Marshal(identity)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "encode identity", err)
	}

	st := s.newStorage(scope)
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	if err := st.Set(ctx, session.AuthKey, string(blob)); err != nil {
		return nil, errors.Storage(err)
	}
	if err := st.Set(ctx, session.SessionStartKey, now); err != nil {
		return nil, errors.Storage(err)
	}
	if err := st.Set(ctx, session.LastActivityKey, now); err != nil {
		return nil, errors.Storage(err)
	}

	if _, status := s.registry.Ensure(ctx, scope); !status.Valid {
		if status.Reason == "" {
			return nil, errors.New(errors.ErrCodeStorage, "session state unavailable")
		}
		return nil, errors.Unauthorized("session could not be established")
	}

	if err := s.adminRepo.TouchLastLogin(ctx, admin.ID); err != nil {
		return nil, errors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:      audit.EventLoginSuccess,
		AdminID:   admin.ID,
		Scope:     scope,
		IP:        ip,
		UserAgent: userAgent,
	})

	return &LoginResult{Admin: admin, Token: token, Scope: scope}, nil
}

// Logout tears the session down: credential and clocks removed, guard
// stopped and dropped.
func (s *AdminService) Logout(ctx context.Context, scope string) {
	if guard, ok := s.registry.Get(scope); ok {
		guard.Logout(ctx)
	} else {
		// Session never adopted here; clear storage directly.
		st := s.newStorage(scope)
		_ = st.Remove(ctx, session.AuthKey)
		_ = st.Remove(ctx, session.SessionStartKey)
		_ = st.Remove(ctx, session.LastActivityKey)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventLogout, Scope: scope})
}

// ScopeForToken derives the storage scope from a client-held token.
func (s *AdminService) ScopeForToken(token string) string {
	return util.HmacSHA256(s.sessionSecret, token)
}

func (s *AdminService) CreateAdmin(ctx context.Context, params model.CreateAdminParams) (*model.Admin, error) {
	if err := s.validate.Struct(params); err != nil {
		return nil, errors.ValidationError(err.Error())
	}

	existing, err := s.adminRepo.FindByEmail(ctx, params.Email)
	if err != nil {
		return nil, errors.Database(err)
	}
	if existing != nil {
		return nil, errors.AlreadyExists("admin")
	}

	hash, err := util.HashPassword(params.Password)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "hash password", err)
	}
	params.PasswordHash = hash

	admin, err := s.adminRepo.Create(ctx, params)
	if err != nil {
		return nil, errors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventAdminCreate, AdminID: admin.ID})
	return admin, nil
}

func (s *AdminService) ChangePassword(ctx context.Context, adminID, current, next string) error {
	if len(next) < 12 {
		return errors.ValidationError("password must be at least 12 characters")
	}

	admin, err := s.adminRepo.FindByID(ctx, adminID)
	if err != nil {
		return errors.Database(err)
	}
	if admin == nil {
		return errors.NotFound("admin")
	}
	if !util.CheckPasswordHash(current, admin.PasswordHash) {
		return errors.Unauthorized("current password does not match")
	}

	hash, err := util.HashPassword(next)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "hash password", err)
	}
	if _, err := s.adminRepo.UpdatePassword(ctx, adminID, hash, false); err != nil {
		return errors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventPasswordChange, AdminID: adminID})
	return nil
}

func (s *AdminService) ListAdmins(ctx context.Context, limit, offset int) ([]model.Admin, error) {
	admins, err := s.adminRepo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, errors.Database(err)
	}
	return admins, nil
}

func (s *AdminService) DeleteAdmin(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return errors.Conflict("cannot delete the signed-in admin")
	}
	admin, err := s.adminRepo.FindByID(ctx, id)
	if err != nil {
		return errors.Database(err)
	}
	if admin == nil {
		return errors.NotFound("admin")
	}
	if err := s.adminRepo.Delete(ctx, id); err != nil {
		return errors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventAdminDelete, AdminID: id})
	return nil
}
