package organization

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/qline/queue-api/internal/model"
	"github.com/qline/queue-api/internal/repository"
	apperrors "github.com/qline/queue-api/pkg/errors"
)

type Service interface {
	CreateOrganization(ctx context.Context, org *model.Organization) error
	GetOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	UpdateOrganization(ctx context.Context, org *model.Organization) error
	DeleteOrganization(ctx context.Context, id uuid.UUID) error
	ListOrganizations(ctx context.Context) ([]*model.Organization, error)

	CreateBranch(ctx context.Context, branch *model.Branch) error
	GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error)
	UpdateBranch(ctx context.Context, branch *model.Branch) error
	DeleteBranch(ctx context.Context, id uuid.UUID) error
	ListBranches(ctx context.Context, organizationID uuid.UUID) ([]*model.Branch, error)

	CreateDepartment(ctx context.Context, dept *model.Department) error
	GetDepartment(ctx context.Context, id uuid.UUID) (*model.Department, error)
	UpdateDepartment(ctx context.Context, dept *model.Department) error
	DeleteDepartment(ctx context.Context, id uuid.UUID) error
	ListDepartments(ctx context.Context, branchID uuid.UUID) ([]*model.Department, error)
}

type service struct {
	orgs     repository.OrganizationRepository
	branches repository.BranchRepository
	depts    repository.DepartmentRepository
}

func NewService(orgs repository.OrganizationRepository, branches repository.BranchRepository, depts repository.DepartmentRepository) Service {
	return &service{orgs: orgs, branches: branches, depts: depts}
}

func (s *service) CreateOrganization(ctx context.Context, org *model.Organization) error {
	if org.Name == "" {
		return apperrors.BadRequest("organization name is required", nil)
	}
	if org.Slug == "" {
		org.Slug = slugify(org.Name)
	}
	return s.orgs.CreateOrganization(ctx, org)
}

func (s *service) GetOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	return s.orgs.GetOrganization(ctx, id)
}

func (s *service) UpdateOrganization(ctx context.Context, org *model.Organization) error {
	return s.orgs.UpdateOrganization(ctx, org)
}

func (s *service) DeleteOrganization(ctx context.Context, id uuid.UUID) error {
	return s.orgs.DeleteOrganization(ctx, id)
}

func (s *service) ListOrganizations(ctx context.Context) ([]*model.Organization, error) {
	return s.orgs.ListOrganizations(ctx)
}

func (s *service) CreateBranch(ctx context.Context, branch *model.Branch) error {
	if branch.OrganizationID == uuid.Nil {
		return apperrors.BadRequest("organization ID is required", nil)
	}
	return s.branches.Create(ctx, branch)
}

func (s *service) GetBranch(ctx context.Context, id uuid.UUID) (*model.Branch, error) {
	return s.branches.Get(ctx, id)
}

func (s *service) UpdateBranch(ctx context.Context, branch *model.Branch) error {
	return s.branches.Update(ctx, branch)
}

func (s *service) DeleteBranch(ctx context.Context, id uuid.UUID) error {
	return s.branches.Delete(ctx, id)
}

func (s *service) ListBranches(ctx context.Context, organizationID uuid.UUID) ([]*model.Branch, error) {
	return s.branches.List(ctx, organizationID)
}

func (s *service) CreateDepartment(ctx context.Context, dept *model.Department) error {
	if dept.BranchID == uuid.Nil {
		return apperrors.BadRequest("branch ID is required", nil)
	}
	branch, err := s.branches.Get(ctx, dept.BranchID)
	if err != nil {
		return apperrors.NotFound("branch", err)
	}
	dept.OrganizationID = branch.OrganizationID
	return s.depts.Create(ctx, dept)
}

func (s *service) GetDepartment(ctx context.Context, id uuid.UUID) (*model.Department, error) {
	return s.depts.Get(ctx, id)
}

func (s *service) UpdateDepartment(ctx context.Context, dept *model.Department) error {
	return s.depts.Update(ctx, dept)
}

func (s *service) DeleteDepartment(ctx context.Context, id uuid.UUID) error {
	return s.depts.Delete(ctx, id)
}

func (s *service) ListDepartments(ctx context.Context, branchID uuid.UUID) ([]*model.Department, error) {
	return s.depts.List(ctx, branchID)
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	return slug
}
