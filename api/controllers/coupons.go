package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fuelpass/fuelpass-backend/api/middleware"
	"github.com/fuelpass/fuelpass-backend/api/responses"
	"github.com/fuelpass/fuelpass-backend/api/validators"
	"github.com/fuelpass/fuelpass-backend/internal/coupons"
	pkgerrors "github.com/fuelpass/fuelpass-backend/pkg/errors"
	"github.com/fuelpass/fuelpass-backend/pkg/logger"
)

type generateCouponRequest struct {
	StationID   string `json:"stationId" validate:"required,uuid4"`
	DispenserID string `json:"dispenserId" validate:"required,max=32"`
	BaseTickets int    `json:"baseTickets" validate:"omitempty,min=1,max=1000"`
	TTLSeconds  int    `json:"ttlSeconds" validate:"omitempty,min=60,max=604800"`
}

type scanCouponRequest struct {
	QRCode string `json:"qrCode" validate:"required,max=128"`
}

type activateCouponRequest struct {
	Token string `json:"token" validate:"required"`
}

type completeCouponRequest struct {
	TotalTickets int `json:"totalTickets" validate:"required,min=1,max=100000"`
}

// GenerateCoupon mints a fresh coupon for a dispenser. Station terminals call
// this with the employee identity forwarded by the gateway.
func GenerateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		employeeID, ok := middleware.EmployeeID(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeUnauthorized, "employee identity missing"))
			return
		}

		var req generateCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stationID, err := uuid.Parse(req.StationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid station id"))
			return
		}

		dto, err := svc.Generate(r.Context(), coupons.GenerateInput{
			StationID:   stationID,
			DispenserID: req.DispenserID,
			EmployeeID:  employeeID,
			BaseTickets: req.BaseTickets,
			TTL:         time.Duration(req.TTLSeconds) * time.Second,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// ScanCoupon binds a printed coupon to the scanning customer and returns the
// activation token.
func ScanCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		userID, ok := middleware.UserID(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		var req scanCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Scan(r.Context(), coupons.ScanInput{
			QRCode: req.QRCode,
			UserID: userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// ActivateCoupon consumes the single-use activation token.
func ActivateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		userID, ok := middleware.UserID(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		var req activateCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Activate(r.Context(), coupons.ActivateInput{
			Token:  req.Token,
			UserID: userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// CompleteCoupon settles the coupon with the final ticket total once the
// fueling transaction clears.
func CompleteCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		userID, ok := middleware.UserID(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		couponID, err := uuid.Parse(chi.URLParam(r, "couponId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon id"))
			return
		}

		var req completeCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Complete(r.Context(), coupons.CompleteInput{
			CouponID:     couponID,
			UserID:       userID,
			TotalTickets: req.TotalTickets,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// GetCoupon returns the coupon projection by id.
func GetCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		couponID, err := uuid.Parse(chi.URLParam(r, "couponId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon id"))
			return
		}

		dto, err := svc.Get(r.Context(), couponID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}
