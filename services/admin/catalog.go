package admin

import (
	"context"
	"errors"
	"regexp"
	"strings"

	serviceRepo "astrobook/database/repository/service"
	"astrobook/models"
	"astrobook/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type DefaultCatalogService struct {
	repo     serviceRepo.ServiceRepository
	validate *validator.Validate
	logger   *zap.Logger
}

func NewCatalogService(repo serviceRepo.ServiceRepository, logger *zap.Logger) *DefaultCatalogService {
	return &DefaultCatalogService{repo: repo, validate: validator.New(), logger: logger}
}

func (s *DefaultCatalogService) ListActive(ctx context.Context) ([]models.Service, error) {
	return s.list(ctx, true)
}

func (s *DefaultCatalogService) ListAll(ctx context.Context) ([]models.Service, error) {
	return s.list(ctx, false)
}

func (s *DefaultCatalogService) list(ctx context.Context, activeOnly bool) ([]models.Service, error) {
	services, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, utils.NewUpstreamError("service catalog", err)
	}
	return services, nil
}

func (s *DefaultCatalogService) Get(ctx context.Context, id string) (*models.Service, error) {
	svc, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, serviceRepo.ErrNotFound) {
		return nil, utils.NewNotFoundError("service")
	}
	if err != nil {
		return nil, utils.NewUpstreamError("service catalog", err)
	}
	return svc, nil
}

func (s *DefaultCatalogService) check(svc *models.Service) error {
	svc.Name = strings.TrimSpace(svc.Name)
	if err := s.validate.Struct(svc); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fe.Field())
			}
			return utils.NewValidationError("invalid or missing fields: %s", strings.Join(fields, ", "))
		}
		return utils.NewValidationError("invalid service")
	}
	return nil
}

// Create adds a service. A missing id is generated; a given id must be a lowercase slug.
func (s *DefaultCatalogService) Create(ctx context.Context, svc models.Service) (*models.Service, error) {
	if err := s.check(&svc); err != nil {
		return nil, err
	}
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	} else if !slugPattern.MatchString(svc.ID) {
		return nil, utils.NewValidationError("id must be a lowercase slug")
	}
	err := s.repo.Create(ctx, &svc)
	if errors.Is(err, serviceRepo.ErrDuplicate) {
		return nil, utils.NewConflictError("a service with this id already exists")
	}
	if err != nil {
		return nil, utils.NewUpstreamError("service catalog", err)
	}
	s.logger.Info("service created", zap.String("serviceId", svc.ID))
	return &svc, nil
}

// Update replaces the editable fields of a service. Existing bookings keep the
// duration and price they were made with.
func (s *DefaultCatalogService) Update(ctx context.Context, id string, svc models.Service) (*models.Service, error) {
	svc.ID = id
	if err := s.check(&svc); err != nil {
		return nil, err
	}
	err := s.repo.Update(ctx, &svc)
	if errors.Is(err, serviceRepo.ErrNotFound) {
		return nil, utils.NewNotFoundError("service")
	}
	if err != nil {
		return nil, utils.NewUpstreamError("service catalog", err)
	}
	s.logger.Info("service updated", zap.String("serviceId", id), zap.Bool("active", svc.Active))
	return &svc, nil
}

func (s *DefaultCatalogService) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	switch {
	case errors.Is(err, serviceRepo.ErrNotFound):
		return utils.NewNotFoundError("service")
	case errors.Is(err, serviceRepo.ErrInUse):
		return utils.NewConflictError("service has bookings, deactivate it instead")
	case err != nil:
		return utils.NewUpstreamError("service catalog", err)
	}
	s.logger.Info("service deleted", zap.String("serviceId", id))
	return nil
}
