package cliauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/gatekit/internal/domain/repository"
	"github.com/dropDatabas3/gatekit/internal/oauth"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
)

// slugProbeAttempts acota el loop de sondeo antes del fallback aleatorio.
const slugProbeAttempts = 10

// ErrProvisioningFailed indica que el find-or-create no pudo converger.
var ErrProvisioningFailed = errors.New("account provisioning failed")

// ProvisioningService crea cuentas y organizaciones por defecto de forma
// idempotente en el primer login desde cualquier provider.
type ProvisioningService interface {
	// FindOrCreateUser busca el usuario por email normalizado o lo crea.
	// Bajo dos primeros logins concurrentes con el mismo email, el índice
	// único del store rechaza al perdedor, que reintenta la lectura una vez
	// (el conflicto se trata como transitorio).
	FindOrCreateUser(ctx context.Context, identity *oauth.Identity) (*repository.User, error)

	// EnsureDefaultOrganization retorna la organización por defecto del
	// usuario, creando organización + rol owner + membresía si no existe.
	EnsureDefaultOrganization(ctx context.Context, userID, displayNameHint string) (string, error)

	// CreateOrganization crea una organización adicional con el caller como
	// owner. Si el usuario aún no tiene organización por defecto, ésta pasa
	// a serlo.
	CreateOrganization(ctx context.Context, ownerUserID, name string) (*repository.Organization, error)
}

// ProvisioningDeps contiene las dependencias del ProvisioningService.
type ProvisioningDeps struct {
	Users         repository.UserRepository
	Organizations repository.OrganizationRepository
	Roles         repository.RoleRepository
	Memberships   repository.MembershipRepository
}

type provisioningService struct {
	users repository.UserRepository
	orgs  repository.OrganizationRepository
	roles repository.RoleRepository
	mems  repository.MembershipRepository
}

// NewProvisioningService crea un ProvisioningService.
func NewProvisioningService(d ProvisioningDeps) ProvisioningService {
	return &provisioningService{users: d.Users, orgs: d.Organizations, roles: d.Roles, mems: d.Memberships}
}

func (s *provisioningService) FindOrCreateUser(ctx context.Context, identity *oauth.Identity) (*repository.User, error) {
	if identity == nil || identity.Email == "" {
		return nil, fmt.Errorf("%w: identity without email", ErrProvisioningFailed)
	}

	u, err := s.users.GetByEmail(ctx, identity.Email)
	if err == nil {
		return u, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	u, err = s.users.Create(ctx, repository.CreateUserInput{
		Email:     identity.Email,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
	})
	if repository.IsConflict(err) {
		// otro login concurrente ganó el insert; releer es suficiente
		return s.users.GetByEmail(ctx, identity.Email)
	}
	if err != nil {
		return nil, err
	}

	logger.From(ctx).Info("user provisioned",
		logger.Component("cliauth.provisioning"),
		logger.UserID(u.ID),
		logger.Email(u.Email),
	)
	return u, nil
}

func (s *provisioningService) EnsureDefaultOrganization(ctx context.Context, userID, displayNameHint string) (string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.DefaultOrganizationID != nil {
		return *u.DefaultOrganizationID, nil
	}

	name := displayNameHint
	if name == "" {
		name = u.Email
	}
	org, err := s.createOrgWithOwner(ctx, userID, name, true)
	if err != nil {
		return "", err
	}
	if err := s.users.SetDefaultOrganization(ctx, userID, org.ID); err != nil {
		return "", err
	}
	return org.ID, nil
}

func (s *provisioningService) CreateOrganization(ctx context.Context, ownerUserID, name string) (*repository.Organization, error) {
	org, err := s.createOrgWithOwner(ctx, ownerUserID, name, false)
	if err != nil {
		return nil, err
	}
	if u, err := s.users.GetByID(ctx, ownerUserID); err == nil && u.DefaultOrganizationID == nil {
		_ = s.users.SetDefaultOrganization(ctx, ownerUserID, org.ID)
	}
	return org, nil
}

// createOrgWithOwner crea la organización con slug único, el rol owner y la
// membresía del creador. El slug se sondea con sufijos -2..-N; si todos los
// candidatos chocan, cae a un sufijo numérico aleatorio. Con el índice único
// del store, cada intento es un insert-or-retry-on-conflict.
func (s *provisioningService) createOrgWithOwner(ctx context.Context, userID, name string, personal bool) (*repository.Organization, error) {
	role, err := s.roles.EnsureOwner(ctx)
	if err != nil {
		return nil, err
	}

	base := Slugify(name)
	var org *repository.Organization
	for attempt := 0; ; attempt++ {
		slug := base
		switch {
		case attempt == 0:
		case attempt < slugProbeAttempts:
			slug = fmt.Sprintf("%s-%d", base, attempt+1)
		default:
			slug = base + "-" + randomSlugSuffix()
		}

		org, err = s.orgs.Create(ctx, repository.CreateOrganizationInput{
			Name:                name,
			Slug:                slug,
			IsPersonalWorkspace: personal,
			OwnerRoleID:         role.ID,
		})
		if err == nil {
			break
		}
		if !repository.IsConflict(err) {
			return nil, err
		}
		if attempt > slugProbeAttempts+3 {
			return nil, fmt.Errorf("%w: slug space exhausted for %q", ErrProvisioningFailed, base)
		}
	}

	now := time.Now().UTC()
	if _, err := s.mems.Create(ctx, repository.CreateMembershipInput{
		UserID:         userID,
		OrganizationID: org.ID,
		RoleID:         role.ID,
		AcceptedAt:     &now,
	}); err != nil {
		return nil, err
	}

	logger.From(ctx).Info("organization provisioned",
		logger.Component("cliauth.provisioning"),
		logger.UserID(userID),
		logger.OrgID(org.ID),
		logger.String("slug", org.Slug),
	)
	return org, nil
}
