package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fuelpass/fuelpass-backend/api/responses"
	"github.com/fuelpass/fuelpass-backend/api/validators"
	"github.com/fuelpass/fuelpass-backend/internal/raffles"
	pkgerrors "github.com/fuelpass/fuelpass-backend/pkg/errors"
	"github.com/fuelpass/fuelpass-backend/pkg/logger"
)

type createRaffleRequest struct {
	Period string `json:"period" validate:"required,len=7"`
}

type closeRaffleRequest struct {
	ClientSeed *string `json:"clientSeed" validate:"omitempty,max=256"`
}

type drawRaffleRequest struct {
	ExternalSeed string  `json:"externalSeed" validate:"required,max=256"`
	Prize        *string `json:"prize" validate:"omitempty,max=32"`
}

// CreateRaffle opens the raffle for a period and publishes the seed
// commitment.
func CreateRaffle(svc raffles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "raffle service unavailable"))
			return
		}

		var req createRaffleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), raffles.CreateInput{Period: req.Period})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// GetRaffle returns the raffle projection by id.
func GetRaffle(svc raffles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "raffle service unavailable"))
			return
		}

		raffleID, err := uuid.Parse(chi.URLParam(r, "raffleId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid raffle id"))
			return
		}

		dto, err := svc.Get(r.Context(), raffleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// GetRaffleByPeriod returns the raffle for a YYYY-MM period.
func GetRaffleByPeriod(svc raffles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "raffle service unavailable"))
			return
		}

		dto, err := svc.GetByPeriod(r.Context(), chi.URLParam(r, "period"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// CloseRaffle freezes the entry pool and commits to it.
func CloseRaffle(svc raffles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "raffle service unavailable"))
			return
		}

		raffleID, err := uuid.Parse(chi.URLParam(r, "raffleId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid raffle id"))
			return
		}

		var req closeRaffleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Close(r.Context(), raffles.CloseInput{
			RaffleID:   raffleID,
			ClientSeed: req.ClientSeed,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// DrawRaffle reveals the server seed and selects the winner.
func DrawRaffle(svc raffles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "raffle service unavailable"))
			return
		}

		raffleID, err := uuid.Parse(chi.URLParam(r, "raffleId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid raffle id"))
			return
		}

		var req drawRaffleRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := raffles.DrawInput{
			RaffleID:     raffleID,
			ExternalSeed: req.ExternalSeed,
		}
		if req.Prize != nil {
			prize, err := decimal.NewFromString(*req.Prize)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid prize amount"))
				return
			}
			input.Prize = &prize
		}

		dto, err := svc.Draw(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// RaffleVerification returns the audit bundle for a drawn raffle: revealed
// seeds, committed root, ordered entries and the winner's inclusion proof.
func RaffleVerification(svc raffles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "raffle service unavailable"))
			return
		}

		raffleID, err := uuid.Parse(chi.URLParam(r, "raffleId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid raffle id"))
			return
		}

		dto, err := svc.VerificationDetails(r.Context(), raffleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// VerifyRaffle recomputes the draw server-side and reports any mismatch
// between the stored outcome and the committed inputs.
func VerifyRaffle(svc raffles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "raffle service unavailable"))
			return
		}

		raffleID, err := uuid.Parse(chi.URLParam(r, "raffleId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid raffle id"))
			return
		}

		report, err := svc.Verify(r.Context(), raffleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}
