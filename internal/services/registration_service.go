// internal/services/registration_service.go
package services

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/farmchain/farmchain-backend/internal/blockchain"
	"github.com/farmchain/farmchain-backend/internal/geo"
	"github.com/farmchain/farmchain-backend/internal/models"
)

type RegistrationService struct {
	ledgerWriter
}

// ParticipantRequest is the identity record shared by farmers and consumers.
type ParticipantRequest struct {
	Name      string  `json:"name" validate:"required,max=128"`
	Location  string  `json:"location" validate:"required,max=256"`
	Latitude  Numeric `json:"latitude" validate:"required,latitude"`
	Longitude Numeric `json:"longitude" validate:"required,longitude"`
}

type RegisterFarmerRequest ParticipantRequest

type RegisterConsumerRequest ParticipantRequest

type RegisterProductRequest struct {
	Name        string  `json:"name" validate:"required,max=128"`
	BasePrice   Numeric `json:"basePrice" validate:"required,uint_text"`
	Description string  `json:"description" validate:"required,max=2048"`
	Location    string  `json:"location" validate:"required,max=256"`
	// DeliveryRange is the maximum delivery distance in km; 0 means unlimited.
	DeliveryRange Numeric `json:"deliveryRange" validate:"required,uint_text"`
}

func NewRegistrationService(submitter blockchain.Submitter, recorder Recorder, logger *logrus.Logger) *RegistrationService {
	return &RegistrationService{
		ledgerWriter: newLedgerWriter(submitter, recorder, logger, "registration"),
	}
}

func (s *RegistrationService) RegisterFarmer(ctx context.Context, req RegisterFarmerRequest) (*blockchain.Receipt, error) {
	return s.registerParticipant(ctx, blockchain.MethodRegisterFarmer, models.ParticipantRoleFarmer, ParticipantRequest(req))
}

func (s *RegistrationService) RegisterConsumer(ctx context.Context, req RegisterConsumerRequest) (*blockchain.Receipt, error) {
	return s.registerParticipant(ctx, blockchain.MethodRegisterConsumer, models.ParticipantRoleConsumer, ParticipantRequest(req))
}

func (s *RegistrationService) registerParticipant(ctx context.Context, method string, role models.ParticipantRole, req ParticipantRequest) (*blockchain.Receipt, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	if err := validate(&req); err != nil {
		return nil, err
	}

	point, err := parsePoint(req.Latitude, req.Longitude)
	if err != nil {
		return nil, err
	}
	lat, lng := geo.ToFixed(point.Lat), geo.ToFixed(point.Lng)

	return s.submit(ctx, blockchain.ContractCall{
		Method: method,
		Args:   []interface{}{req.Name, req.Location, lat, lng},
	}, models.JSONB{
		"role":      string(role),
		"name":      req.Name,
		"location":  req.Location,
		"latitude":  lat,
		"longitude": lng,
	})
}

func (s *RegistrationService) RegisterProduct(ctx context.Context, req RegisterProductRequest) (*blockchain.Receipt, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Location = strings.TrimSpace(req.Location)
	if err := validate(&req); err != nil {
		return nil, err
	}

	basePrice, ok := new(big.Int).SetString(req.BasePrice.String(), 10)
	if !ok {
		return nil, fieldError("basePrice", "uint_text", "basePrice must be a non-negative integer")
	}
	deliveryRange, ok := new(big.Int).SetString(req.DeliveryRange.String(), 10)
	if !ok {
		return nil, fieldError("deliveryRange", "uint_text", "deliveryRange must be a non-negative integer")
	}

	return s.submit(ctx, blockchain.ContractCall{
		Method: blockchain.MethodRegisterProduct,
		Args:   []interface{}{req.Name, basePrice, req.Description, req.Location, deliveryRange},
	}, models.JSONB{
		"name":          req.Name,
		"basePrice":     basePrice.String(),
		"description":   req.Description,
		"location":      req.Location,
		"deliveryRange": deliveryRange.String(),
	})
}

func parsePoint(latText, lngText Numeric) (geo.Point, error) {
	lat, err := strconv.ParseFloat(latText.String(), 64)
	if err != nil {
		return geo.Point{}, fieldError("latitude", "latitude", "latitude must be a number")
	}
	lng, err := strconv.ParseFloat(lngText.String(), 64)
	if err != nil {
		return geo.Point{}, fieldError("longitude", "longitude", "longitude must be a number")
	}

	point, err := geo.NewPoint(lat, lng)
	if err != nil {
		field := "latitude"
		if errors.Is(err, geo.ErrInvalidLongitude) {
			field = "longitude"
		}
		return geo.Point{}, fieldError(field, field, err.Error())
	}
	return point, nil
}
