package services

import (
	"context"
	"sort"

	"github.com/soaringjerry/MoodMetrics/internal/models"
)

type UserStore interface {
	// ListUsers returns every account, newest first.
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	SetUserApproved(ctx context.Context, id string, approved bool) error
}

type UserService struct{ store UserStore }

func NewUserService(store UserStore) *UserService { return &UserService{store: store} }

func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// Approve marks an account as approved and returns it. Approving an approved
// account is a no-op.
func (s *UserService) Approve(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewNotFoundError("user not found")
	}
	if !u.Approved {
		if err := s.store.SetUserApproved(ctx, id, true); err != nil {
			return nil, err
		}
		u.Approved = true
	}
	return u, nil
}

// Employees lists approved employees and managers, the population survey
// coverage is measured against.
func (s *UserService) Employees(ctx context.Context) ([]*models.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		if u.Approved && u.Role.Eligible() {
			out = append(out, u)
		}
	}
	return out, nil
}

// Departments lists the distinct departments of approved users, sorted.
func (s *UserService) Departments(ctx context.Context) ([]Department, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	names := make([]string, 0)
	for _, u := range users {
		if !u.Approved || u.Department == "" {
			continue
		}
		if _, ok := seen[u.Department]; ok {
			continue
		}
		seen[u.Department] = struct{}{}
		names = append(names, u.Department)
	}
	sort.Strings(names)
	out := make([]Department, 0, len(names))
	for _, n := range names {
		out = append(out, Department{Name: n})
	}
	return out, nil
}
