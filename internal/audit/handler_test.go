package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandlerTailsJournal(t *testing.T) {
	ctx := context.Background()
	j := NewJournal(NewMemoryStore())
	id := uuid.New()
	require.NoError(t, j.Record(ctx, id, AggregateInvoice, "InvoiceIssued", issued{Number: "202503-0001"}))
	require.NoError(t, j.Record(ctx, uuid.New(), AggregatePayment, "PaymentRecorded", nil))

	srv := httptest.NewServer(NewHandler(j, zap.NewNop()).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/journal?after=1&limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 1)
	assert.Equal(t, "PaymentRecorded", events[0].EventType)

	resp, err = http.Get(srv.URL + "/journal/" + id.String())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	require.Len(t, events, 1)
	assert.Equal(t, "InvoiceIssued", events[0].EventType)

	resp, err = http.Get(srv.URL + "/journal?after=-3")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
