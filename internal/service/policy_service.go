package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/hwplan-api/internal/dto"
	"github.com/noah-isme/hwplan-api/internal/models"
	"github.com/noah-isme/hwplan-api/internal/repository"
	"github.com/noah-isme/hwplan-api/internal/scheduler"
)

// PolicyService resolves the scheduling policy applied to each user.
type PolicyService interface {
	Resolve(user *models.User) scheduler.Policy
	ForUser(ctx context.Context, userID uint) (scheduler.Policy, error)
	Get(ctx context.Context, userID uint) (dto.PolicyResponse, error)
	Update(ctx context.Context, userID uint, payload dto.PolicyUpdateRequest) (dto.PolicyResponse, error)
}

type policyService struct {
	users     repository.UserRepository
	defaults  scheduler.Policy
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPolicyService constructs a policy service falling back to defaults.
func NewPolicyService(users repository.UserRepository, defaults scheduler.Policy, validate *validator.Validate, logger zerolog.Logger) PolicyService {
	return &policyService{
		users:     users,
		defaults:  defaults,
		validator: validate,
		logger:    logger.With().Str("component", "policy_service").Logger(),
	}
}

// ResolvePolicy applies the user's overrides on top of defaults. A nil user
// or nil override keeps the default value.
func ResolvePolicy(user *models.User, defaults scheduler.Policy) scheduler.Policy {
	policy := defaults
	if user == nil {
		return policy
	}
	if user.BreakTime != nil {
		policy.BreakTime = *user.BreakTime
	}
	if user.ChunkTime != nil {
		policy.MinChunkDuration = *user.ChunkTime
	}
	return policy
}

func (s *policyService) Resolve(user *models.User) scheduler.Policy {
	return ResolvePolicy(user, s.defaults)
}

func (s *policyService) ForUser(ctx context.Context, userID uint) (scheduler.Policy, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.defaults, nil
		}
		return scheduler.Policy{}, persistenceError("load user policy", err)
	}
	return s.Resolve(&user), nil
}

func (s *policyService) Get(ctx context.Context, userID uint) (dto.PolicyResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.response(nil), nil
		}
		return dto.PolicyResponse{}, persistenceError("load user policy", err)
	}
	return s.response(&user), nil
}

func (s *policyService) Update(ctx context.Context, userID uint, payload dto.PolicyUpdateRequest) (dto.PolicyResponse, error) {
	if userID == 0 {
		return dto.PolicyResponse{}, ErrOwnerRequired
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.PolicyResponse{}, err
	}

	user := models.User{ID: userID, BreakTime: payload.BreakTime, ChunkTime: payload.ChunkTime}
	if err := s.Resolve(&user).Validate(); err != nil {
		return dto.PolicyResponse{}, err
	}

	if err := s.users.Upsert(ctx, &user); err != nil {
		return dto.PolicyResponse{}, persistenceError("save user policy", err)
	}

	s.logger.Info().
		Uint("user_id", userID).
		Bool("break_overridden", user.BreakTime != nil).
		Bool("chunk_overridden", user.ChunkTime != nil).
		Msg("scheduling policy updated")

	return s.response(&user), nil
}

func (s *policyService) response(user *models.User) dto.PolicyResponse {
	policy := s.Resolve(user)
	response := dto.PolicyResponse{
		BreakTime:        policy.BreakTime,
		MinChunkDuration: policy.MinChunkDuration,
		DayEnd:           policy.DayEnd,
	}
	if user != nil {
		response.BreakOverridden = user.BreakTime != nil
		response.ChunkOverridden = user.ChunkTime != nil
	}
	return response
}
