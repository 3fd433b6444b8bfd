package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fuelpass/fuelpass-backend/internal/raffles"
	"github.com/fuelpass/fuelpass-backend/pkg/db/models"
	"github.com/fuelpass/fuelpass-backend/pkg/enums"
	pkgerrors "github.com/fuelpass/fuelpass-backend/pkg/errors"
)

type stubRaffleService struct {
	dto          *raffles.RaffleDTO
	verification *raffles.VerificationDTO
	report       *raffles.VerificationReport
	err          error

	createInput raffles.CreateInput
	closeInput  raffles.CloseInput
	drawInput   raffles.DrawInput
	period      string
}

func (s *stubRaffleService) Create(_ context.Context, input raffles.CreateInput) (*raffles.RaffleDTO, error) {
	s.createInput = input
	return s.dto, s.err
}

func (s *stubRaffleService) EnsureOpenForPeriod(context.Context, *gorm.DB, string) (*models.Raffle, error) {
	return nil, s.err
}

func (s *stubRaffleService) Get(context.Context, uuid.UUID) (*raffles.RaffleDTO, error) {
	return s.dto, s.err
}

func (s *stubRaffleService) GetByPeriod(_ context.Context, period string) (*raffles.RaffleDTO, error) {
	s.period = period
	return s.dto, s.err
}

func (s *stubRaffleService) Close(_ context.Context, input raffles.CloseInput) (*raffles.RaffleDTO, error) {
	s.closeInput = input
	return s.dto, s.err
}

func (s *stubRaffleService) Draw(_ context.Context, input raffles.DrawInput) (*raffles.RaffleDTO, error) {
	s.drawInput = input
	return s.dto, s.err
}

func (s *stubRaffleService) VerificationDetails(context.Context, uuid.UUID) (*raffles.VerificationDTO, error) {
	return s.verification, s.err
}

func (s *stubRaffleService) Verify(context.Context, uuid.UUID) (*raffles.VerificationReport, error) {
	return s.report, s.err
}

func raffleFixture() *raffles.RaffleDTO {
	return &raffles.RaffleDTO{
		ID:             uuid.New(),
		Period:         "2026-09",
		Status:         enums.RaffleStatusOpen,
		ServerSeedHash: "a3b5c7",
		CreatedAt:      time.Now(),
	}
}

func TestCreateRaffleSuccess(t *testing.T) {
	svc := &stubRaffleService{dto: raffleFixture()}
	handler := CreateRaffle(svc, nil)

	payload := []byte(`{"period":"2026-09"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/raffles", bytes.NewReader(payload))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.createInput.Period != "2026-09" {
		t.Fatalf("unexpected period %q", svc.createInput.Period)
	}

	var envelope struct {
		Data raffles.RaffleDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ServerSeedHash != "a3b5c7" {
		t.Fatalf("commitment hash missing from response")
	}
	if envelope.Data.ServerSeed != "" {
		t.Fatalf("server seed must not leak before the draw")
	}
}

func TestCreateRaffleDuplicatePeriod(t *testing.T) {
	svc := &stubRaffleService{err: pkgerrors.New(pkgerrors.CodeConflict, "raffle already exists for period")}
	handler := CreateRaffle(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/raffles", bytes.NewReader([]byte(`{"period":"2026-09"}`)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
}

func TestGetRaffleInvalidID(t *testing.T) {
	handler := GetRaffle(&stubRaffleService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/raffles/nope", nil)
	req = withURLParam(req, "raffleId", "nope")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestGetRaffleByPeriod(t *testing.T) {
	svc := &stubRaffleService{dto: raffleFixture()}
	handler := GetRaffleByPeriod(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/raffles/period/2026-09", nil)
	req = withURLParam(req, "period", "2026-09")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.period != "2026-09" {
		t.Fatalf("unexpected period %q", svc.period)
	}
}

func TestCloseRafflePassesClientSeed(t *testing.T) {
	dto := raffleFixture()
	dto.Status = enums.RaffleStatusClosed
	svc := &stubRaffleService{dto: dto}
	handler := CloseRaffle(svc, nil)
	raffleID := uuid.New()

	payload := []byte(`{"clientSeed":"community-seed"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/raffles/"+raffleID.String()+"/close", bytes.NewReader(payload))
	req = withURLParam(req, "raffleId", raffleID.String())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.closeInput.RaffleID != raffleID {
		t.Fatalf("expected raffle %s got %s", raffleID, svc.closeInput.RaffleID)
	}
	if svc.closeInput.ClientSeed == nil || *svc.closeInput.ClientSeed != "community-seed" {
		t.Fatalf("client seed not forwarded: %v", svc.closeInput.ClientSeed)
	}
}

func TestDrawRaffleSuccess(t *testing.T) {
	dto := raffleFixture()
	dto.Status = enums.RaffleStatusDrawn
	dto.ServerSeed = "revealed-seed"
	svc := &stubRaffleService{dto: dto}
	handler := DrawRaffle(svc, nil)
	raffleID := uuid.New()

	payload := []byte(`{"externalSeed":"beacon-0042","prize":"750.00"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/raffles/"+raffleID.String()+"/draw", bytes.NewReader(payload))
	req = withURLParam(req, "raffleId", raffleID.String())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.drawInput.ExternalSeed != "beacon-0042" {
		t.Fatalf("unexpected external seed %q", svc.drawInput.ExternalSeed)
	}
	if svc.drawInput.Prize == nil || !svc.drawInput.Prize.Equal(decimal.RequireFromString("750.00")) {
		t.Fatalf("prize not forwarded: %v", svc.drawInput.Prize)
	}
}

func TestDrawRaffleInvalidPrize(t *testing.T) {
	handler := DrawRaffle(&stubRaffleService{}, nil)
	raffleID := uuid.New()

	payload := []byte(`{"externalSeed":"beacon-0042","prize":"lots"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/raffles/"+raffleID.String()+"/draw", bytes.NewReader(payload))
	req = withURLParam(req, "raffleId", raffleID.String())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestDrawRaffleStateConflict(t *testing.T) {
	svc := &stubRaffleService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "raffle must be closed before drawing")}
	handler := DrawRaffle(svc, nil)
	raffleID := uuid.New()

	payload := []byte(`{"externalSeed":"beacon-0042"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/raffles/"+raffleID.String()+"/draw", bytes.NewReader(payload))
	req = withURLParam(req, "raffleId", raffleID.String())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func TestRaffleVerificationReturnsBundle(t *testing.T) {
	raffleID := uuid.New()
	svc := &stubRaffleService{verification: &raffles.VerificationDTO{
		RaffleID:   raffleID,
		Period:     "2026-09",
		ServerSeed: "revealed-seed",
		MerkleRoot: "rootroot",
	}}
	handler := RaffleVerification(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/raffles/"+raffleID.String()+"/verification", nil)
	req = withURLParam(req, "raffleId", raffleID.String())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data raffles.VerificationDTO `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ServerSeed != "revealed-seed" {
		t.Fatalf("verification bundle must reveal the server seed")
	}
}

func TestVerifyRaffleReportsOutcome(t *testing.T) {
	raffleID := uuid.New()
	svc := &stubRaffleService{report: &raffles.VerificationReport{Valid: true}}
	handler := VerifyRaffle(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/raffles/"+raffleID.String()+"/verify", nil)
	req = withURLParam(req, "raffleId", raffleID.String())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}

	var envelope struct {
		Data raffles.VerificationReport `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Valid {
		t.Fatalf("expected valid report")
	}
}
