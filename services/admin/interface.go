package admin

import (
	"context"

	"astrobook/models"
)

// AuthService authenticates the practitioner for the admin dashboard.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.AdminSession, error)
	Authenticate(token string) (string, error)
}

// CatalogService manages the bookable services.
type CatalogService interface {
	ListActive(ctx context.Context) ([]models.Service, error)
	ListAll(ctx context.Context) ([]models.Service, error)
	Get(ctx context.Context, id string) (*models.Service, error)
	Create(ctx context.Context, svc models.Service) (*models.Service, error)
	Update(ctx context.Context, id string, svc models.Service) (*models.Service, error)
	Delete(ctx context.Context, id string) error
}
