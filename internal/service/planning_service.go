package service

import (
	"context"

	"maintenance-service/internal/model"
	"maintenance-service/internal/policy"
	"maintenance-service/internal/repository"
)

type PlanningService struct {
	plannings repository.PlanningRepository
}

func NewPlanningService(plannings repository.PlanningRepository) *PlanningService {
	return &PlanningService{plannings: plannings}
}

type PlanningListOptions struct {
	Range  model.DateRange
	Status string
}

func (s *PlanningService) List(ctx context.Context, principal model.Principal, opts PlanningListOptions) ([]model.Planning, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	filter := repository.PlanningFilter{
		From:   opts.Range.From,
		To:     opts.Range.To,
		Status: opts.Status,
	}
	switch principal.Role {
	case model.RoleAdmin:
	case model.RoleTechnician:
		filter.TechnicianID = &principal.UserID
	default:
		return nil, ErrPermissionDenied
	}
	return s.plannings.List(ctx, filter)
}

func (s *PlanningService) Get(ctx context.Context, principal model.Principal, id uint64) (*model.Planning, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	planning, err := s.plannings.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !policy.CanViewPlanning(principal, *planning) {
		return nil, ErrPermissionDenied
	}
	return planning, nil
}

// Mine is the calling technician's own planning.
func (s *PlanningService) Mine(ctx context.Context, principal model.Principal) ([]model.Planning, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	if !principal.IsTechnician() {
		return nil, ErrPermissionDenied
	}
	return s.plannings.List(ctx, repository.PlanningFilter{TechnicianID: &principal.UserID})
}

// ForIntervention returns the planning row of one intervention, if planned.
func (s *PlanningService) ForIntervention(ctx context.Context, principal model.Principal, interventionID uint64) (*model.Planning, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	planning, err := s.plannings.GetByInterventionID(ctx, interventionID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !policy.CanViewPlanning(principal, *planning) {
		return nil, ErrPermissionDenied
	}
	return planning, nil
}
