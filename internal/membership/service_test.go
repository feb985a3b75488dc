package membership_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clubledger/internal/audit"
	"clubledger/internal/billing"
	"clubledger/internal/errs"
	"clubledger/internal/memstore"
	"clubledger/internal/membership"
)

func newService(t *testing.T) (membership.Service, *memstore.Store, *audit.Journal) {
	t.Helper()
	store := memstore.New()
	journal := audit.NewJournal(audit.NewMemoryStore())
	costs := billing.NewConfigLoader(store, zap.NewNop())
	return membership.NewService(store, costs, journal, zap.NewNop()), store, journal
}

func params(number int, nid string) membership.MemberParams {
	return membership.MemberParams{Number: number, NationalID: nid, Email: "socio@example.com", FirstName: "Ana", LastName: "Rojas"}
}

func TestRegisterMemberDefaultsAndJournals(t *testing.T) {
	svc, _, journal := newService(t)
	ctx := context.Background()

	m, err := svc.RegisterMember(ctx, params(1, "11.111.111-1"))
	require.NoError(t, err)
	assert.Equal(t, membership.StatusActive, m.Status)
	assert.False(t, m.JoinedAt.IsZero())

	got, err := svc.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	events, err := journal.History(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "MemberRegistered", events[0].EventType)
}

func TestRegisterMemberRejectsDuplicates(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.RegisterMember(ctx, params(1, "11.111.111-1"))
	require.NoError(t, err)

	_, err = svc.RegisterMember(ctx, params(1, "22.222.222-2"))
	assert.True(t, errors.Is(err, errs.ErrConflict))
	_, err = svc.RegisterMember(ctx, params(2, "11111111-1"))
	assert.True(t, errors.Is(err, errs.ErrConflict), "same national id in another format")

	_, err = svc.GetMember(ctx, uuid.New())
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestRecordVisitUsesConfiguredCost(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()
	cost := decimal.NewFromInt(5000)
	require.NoError(t, store.SetBillingConfig(ctx, billing.StoredConfig{VisitCost: &cost}))

	m, err := svc.RegisterMember(ctx, params(1, "11.111.111-1"))
	require.NoError(t, err)
	v, err := svc.RecordVisit(ctx, m.ID, time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), 2)
	require.NoError(t, err)
	assert.True(t, v.UnitCost.Equal(cost))
	assert.True(t, v.Total.Equal(decimal.NewFromInt(10000)))

	inMarch, err := svc.ListVisits(ctx, m.ID, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, inMarch, 1)
	inApril, err := svc.ListVisits(ctx, m.ID, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, inApril)
}

func TestRecordVisitRequiresActiveMember(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	p := params(1, "11.111.111-1")
	p.Status = membership.StatusInactive
	m, err := svc.RegisterMember(ctx, p)
	require.NoError(t, err)

	_, err = svc.RecordVisit(ctx, m.ID, time.Now(), 1)
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, err = svc.RecordVisit(ctx, uuid.New(), time.Now(), 1)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestAddVesselRequiresOwner(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.AddVessel(ctx, membership.VesselParams{MemberID: uuid.New(), Name: "Albatros", Category: membership.CategoryCruiser})
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	m, err := svc.RegisterMember(ctx, params(1, "11.111.111-1"))
	require.NoError(t, err)
	_, err = svc.AddVessel(ctx, membership.VesselParams{MemberID: m.ID, Name: "Albatros", Category: membership.CategoryCruiser, LengthFeet: decimal.NewFromInt(30)})
	require.NoError(t, err)
	vessels, err := svc.ListVessels(ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, vessels, 1)
}

func TestHandlerRegisterAndFetch(t *testing.T) {
	svc, _, _ := newService(t)
	srv := httptest.NewServer(membership.NewHandler(svc, zap.NewNop()).Routes())
	defer srv.Close()

	body, _ := json.Marshal(map[string]any{
		"number": 4, "national_id": "12.345.678-5", "email": "luis@example.com", "first_name": "Luis", "last_name": "Soto",
	})
	resp, err := http.Post(srv.URL+"/members", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created membership.Member
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "123456785", created.NationalID)

	get, err := http.Get(srv.URL + "/members/" + created.ID.String())
	require.NoError(t, err)
	defer get.Body.Close()
	assert.Equal(t, http.StatusOK, get.StatusCode)

	missing, err := http.Get(srv.URL + "/members/" + uuid.New().String())
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	bad, err := http.Post(srv.URL+"/members", "application/json", bytes.NewReader([]byte(`{"number":0}`)))
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}
