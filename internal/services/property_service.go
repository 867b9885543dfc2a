package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/auth"
	"rental-backend/internal/cache"
	"rental-backend/internal/logger"
	"rental-backend/internal/models"
)

const propertyListTTL = 2 * time.Minute

type PropertyService struct {
	Repo PropertyStore

	log *logrus.Entry
}

func NewPropertyService(repo PropertyStore) *PropertyService {
	return &PropertyService{Repo: repo, log: logger.WithComponent("properties")}
}

// Create submits a listing for the owner. It stays pending until an admin approves it.
func (s *PropertyService) Create(ctx context.Context, p auth.Principal, req *models.CreatePropertyRequest) (*models.Property, error) {
	if p.Role != models.RoleOwner && !p.IsAdmin() {
		return nil, apperrors.New(apperrors.KindForbidden, "only owners can list properties")
	}
	if req.PricePerMonth <= 0 {
		return nil, apperrors.New(apperrors.KindValidation, "price_per_month must be positive")
	}
	for _, m := range req.AcceptedPaymentMethods {
		if !m.Valid() {
			return nil, apperrors.New(apperrors.KindInvalidMethod, "unknown payment method %q", m)
		}
	}
	if containsMethod(req.AcceptedPaymentMethods, models.MethodWallet) && req.WalletNumber == "" {
		return nil, apperrors.New(apperrors.KindValidation, "wallet_number is required when wallet payments are accepted")
	}

	prop := &models.Property{
		OwnerID:                p.UserID,
		Name:                   req.Name,
		Address:                req.Address,
		PricePerMonth:          req.PricePerMonth,
		IsAvailable:            true,
		Status:                 models.PropertyPending,
		AcceptedPaymentMethods: req.AcceptedPaymentMethods,
		WalletName:             req.WalletName,
		WalletNumber:           req.WalletNumber,
		BankName:               req.BankName,
		BankAccountNumber:      req.BankAccountNumber,
	}
	if err := s.Repo.Create(ctx, prop); err != nil {
		return nil, err
	}

	cache.InvalidateKeys(ctx, cache.PendingListingKey)
	s.log.WithFields(logrus.Fields{"property_id": prop.ID, "owner_id": p.UserID}).Info("listing submitted")
	return prop, nil
}

func containsMethod(methods []models.PaymentMethod, m models.PaymentMethod) bool {
	for _, x := range methods {
		if x == m {
			return true
		}
	}
	return false
}

// Get returns a property. Listings that are not approved are only visible to their owner and admins.
func (s *PropertyService) Get(ctx context.Context, p auth.Principal, id int) (*models.Property, error) {
	prop, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if prop.Status != models.PropertyApproved && !p.CanManageProperty(prop) {
		return nil, apperrors.New(apperrors.KindNotFound, "property not found")
	}
	return prop, nil
}

// List returns the bookable catalogue, or all of an owner's own listings when mine is set
func (s *PropertyService) List(ctx context.Context, p auth.Principal, mine bool) ([]*models.Property, error) {
	if mine {
		if p.Role != models.RoleOwner {
			return nil, apperrors.New(apperrors.KindForbidden, "only owners have listings")
		}
		return s.list(ctx, models.PropertyFilter{OwnerID: p.UserID})
	}

	var props []*models.Property
	if cache.GetJSON(ctx, cache.PropertyListKey, &props) {
		return props, nil
	}
	props, err := s.list(ctx, models.PropertyFilter{Bookable: true})
	if err != nil {
		return nil, err
	}
	cache.SetJSON(ctx, cache.PropertyListKey, props, propertyListTTL)
	return props, nil
}

func (s *PropertyService) list(ctx context.Context, f models.PropertyFilter) ([]*models.Property, error) {
	props, err := s.Repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if props == nil {
		props = []*models.Property{}
	}
	return props, nil
}

// SetAvailability lets the owner stop or resume taking bookings. Existing bookings are untouched.
func (s *PropertyService) SetAvailability(ctx context.Context, p auth.Principal, id int, available bool) (*models.Property, error) {
	prop, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.CanManageProperty(prop) {
		return nil, apperrors.New(apperrors.KindForbidden, "property %d belongs to another owner", id)
	}
	if err := s.Repo.SetAvailability(ctx, id, available); err != nil {
		return nil, err
	}
	prop.IsAvailable = available

	cache.InvalidatePropertyCaches(ctx, id)
	s.log.WithFields(logrus.Fields{"property_id": id, "available": available}).Info("availability changed")
	return prop, nil
}
