package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/bloomlink/bloomlink-backend/internal/area"
	"github.com/bloomlink/bloomlink-backend/pkg/config"
	dbpkg "github.com/bloomlink/bloomlink-backend/pkg/db"
	"github.com/bloomlink/bloomlink-backend/pkg/db/models"
	"github.com/bloomlink/bloomlink-backend/pkg/enums"
	pkgerrors "github.com/bloomlink/bloomlink-backend/pkg/errors"
	"github.com/bloomlink/bloomlink-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines store lifecycle and configuration operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Store, error)
	Approve(ctx context.Context, storeID uuid.UUID) error
	Suspend(ctx context.Context, storeID uuid.UUID) error
	SetOpen(ctx context.Context, storeID uuid.UUID, open bool) error
	AdjustPoints(ctx context.Context, storeID uuid.UUID, deltaKRW int) error
	SetCommissionRate(ctx context.Context, storeID uuid.UUID, rate *float64) error
	AddServiceArea(ctx context.Context, storeID uuid.UUID, input ServiceAreaInput) (*models.StoreServiceArea, error)
	RemoveServiceArea(ctx context.Context, storeID, areaID uuid.UUID) error
	FindByID(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
	ListActive(ctx context.Context) ([]models.Store, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	normalizer *area.Normalizer
	cfg        config.StoresConfig
	logg       *logger.Logger
	validate   *validator.Validate
}

// RegisterInput captures a new store application. Stores start pending and
// cannot receive orders until approved.
type RegisterInput struct {
	Name       string   `validate:"required"`
	OwnerName  string   `validate:"required"`
	Phone      string   `validate:"required"`
	Email      string   `validate:"required,email"`
	Categories []string `validate:"required,min=1,dive,required"`
}

// ServiceAreaInput is one coverage area with its optional minimum order price.
type ServiceAreaInput struct {
	Province    string `validate:"required"`
	City        string `validate:"required"`
	District    *string
	MinPriceKRW int `validate:"gte=0"`
}

// NewService builds a store service with the required dependencies.
func NewService(repo Repository, tx txRunner, normalizer *area.Normalizer, cfg config.StoresConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stores repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if normalizer == nil {
		return nil, fmt.Errorf("area normalizer required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		normalizer: normalizer,
		cfg:        cfg,
		logg:       logg,
		validate:   validator.New(),
	}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Store, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store input")
	}
	for _, c := range input.Categories {
		if !enums.ProductCategory(c).IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown product category %q", c))
		}
	}

	store := &models.Store{
		Name:       input.Name,
		OwnerName:  &input.OwnerName,
		Phone:      &input.Phone,
		Email:      &input.Email,
		Status:     enums.StoreStatusPending,
		Categories: pq.StringArray(input.Categories),
	}
	if err := s.repo.Create(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating store")
	}
	return store, nil
}

func (s *service) Approve(ctx context.Context, storeID uuid.UUID) error {
	store, err := s.findStore(ctx, storeID)
	if err != nil {
		return err
	}
	if store.Status == enums.StoreStatusActive {
		return nil
	}
	now := time.Now().UTC()
	err = s.repo.UpdateFields(ctx, storeID, map[string]any{
		"status":      enums.StoreStatusActive,
		"approved_at": now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "approving store")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithStoreID(ctx, storeID.String()), "store approved")
	}
	return nil
}

func (s *service) Suspend(ctx context.Context, storeID uuid.UUID) error {
	if _, err := s.findStore(ctx, storeID); err != nil {
		return err
	}
	err := s.repo.UpdateFields(ctx, storeID, map[string]any{
		"status":  enums.StoreStatusSuspended,
		"is_open": false,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "suspending store")
	}
	if s.logg != nil {
		s.logg.Warn(s.logg.WithStoreID(ctx, storeID.String()), "store suspended")
	}
	return nil
}

// SetOpen toggles the live open/closed flag. Only active stores can open.
func (s *service) SetOpen(ctx context.Context, storeID uuid.UUID, open bool) error {
	store, err := s.findStore(ctx, storeID)
	if err != nil {
		return err
	}
	if open && store.Status != enums.StoreStatusActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("store in status %s cannot open", store.Status))
	}
	if err := s.repo.UpdateFields(ctx, storeID, map[string]any{"is_open": open}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating open flag")
	}
	return nil
}

// AdjustPoints credits or debits the store's point balance. A debit that
// would push the balance below zero is rejected.
func (s *service) AdjustPoints(ctx context.Context, storeID uuid.UUID, deltaKRW int) error {
	affected, err := s.repo.AdjustPointsBalance(ctx, storeID, deltaKRW)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjusting points balance")
	}
	if affected == 0 {
		if _, err := s.findStore(ctx, storeID); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "points balance cannot go negative")
	}
	return nil
}

func (s *service) SetCommissionRate(ctx context.Context, storeID uuid.UUID, rate *float64) error {
	if rate != nil && (*rate < 0 || *rate > 1) {
		return pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 1")
	}
	if _, err := s.findStore(ctx, storeID); err != nil {
		return err
	}
	if err := s.repo.UpdateFields(ctx, storeID, map[string]any{"commission_rate": rate}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating commission rate")
	}
	return nil
}

// AddServiceArea registers one coverage area, normalized before storage so
// matching and the uniqueness constraint both operate on canonical form.
func (s *service) AddServiceArea(ctx context.Context, storeID uuid.UUID, input ServiceAreaInput) (*models.StoreServiceArea, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid service area input")
	}

	normalized := s.normalizer.Normalize(area.Area{
		Province: input.Province,
		City:     input.City,
		District: deref(input.District),
	})
	if normalized.Province == "" || normalized.City == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMissingArea, "service area requires province and city")
	}

	var created *models.StoreServiceArea
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindByID(ctx, storeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store")
		}

		count, err := repo.CountServiceAreas(ctx, storeID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting service areas")
		}
		if count >= s.cfg.MaxServiceAreasPerStore {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("store already has %d service areas", count))
		}

		sa := &models.StoreServiceArea{
			StoreID:      storeID,
			Province:     normalized.Province,
			City:         normalized.City,
			CanonicalKey: s.normalizer.CanonicalKey(normalized),
			MinPriceKRW:  input.MinPriceKRW,
		}
		if normalized.District != "" {
			d := normalized.District
			sa.District = &d
		}
		if err := repo.AddServiceArea(ctx, sa); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_store_service_areas_store_key") {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "service area already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding service area")
		}
		created = sa
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) RemoveServiceArea(ctx context.Context, storeID, areaID uuid.UUID) error {
	affected, err := s.repo.DeleteServiceArea(ctx, storeID, areaID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing service area")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "service area not found")
	}
	return nil
}

func (s *service) FindByID(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	return s.findStore(ctx, storeID)
}

func (s *service) ListActive(ctx context.Context) ([]models.Store, error) {
	result, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing active stores")
	}
	return result, nil
}

func (s *service) findStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	store, err := s.repo.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading store")
	}
	return store, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
