package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/altynbek07/invbot/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestReportCSV(t *testing.T) {
	store := newMemStore()
	svc := NewReportService(store)
	tx, _ := seedTx(t, store, domain.TxTypePayout, domain.TxStatusAdminRejected)
	cause := "bad address"
	tx.RejectCause = &cause
	_, err := store.UpdateTransaction(context.Background(), tx)
	require.NoError(t, err)

	var buf strings.Builder
	start := time.Now().UTC().Add(-time.Hour)
	stop := time.Now().UTC().Add(time.Hour)
	require.NoError(t, svc.WriteCSV(context.Background(), &buf, start, stop))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "id,created_at,type,status")
	require.Contains(t, lines[1], "payout")
	require.Contains(t, lines[1], "ADMIN_REJECTED")
	require.Contains(t, lines[1], "25")
	require.Contains(t, lines[1], "bad address")
}

func TestReportCSVEmptyRange(t *testing.T) {
	store := newMemStore()
	svc := NewReportService(store)
	seedTx(t, store, domain.TxTypePayin, domain.TxStatusGwPayed)

	var buf strings.Builder
	start := time.Now().UTC().Add(time.Hour)
	stop := start.Add(time.Hour)
	require.NoError(t, svc.WriteCSV(context.Background(), &buf, start, stop))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
}
