package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/altynbek07/invbot/internal/domain"
)

// ReportService exports transaction history for admin review.
type ReportService struct {
	store QueryStore
}

func NewReportService(store QueryStore) *ReportService {
	return &ReportService{store: store}
}

var reportHeader = []string{
	"id", "created_at", "type", "status", "currency",
	"amount", "payin_amount", "tip", "user_id", "ext_id",
	"gw_error", "reject_cause",
}

// WriteCSV streams all transactions created in [start, stop) as CSV.
func (s *ReportService) WriteCSV(ctx context.Context, w io.Writer, start, stop time.Time) error {
	txs, err := s.store.Queries().ListTransactionsByDateRange(ctx, start, stop)
	if err != nil {
		return fmt.Errorf("list transactions for report: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return err
	}
	for i := range txs {
		tx := &txs[i]
		record := []string{
			strconv.FormatInt(tx.ID, 10),
			tx.CreatedAt.UTC().Format(time.RFC3339),
			tx.Type.String(),
			tx.Status.String(),
			tx.Currency,
			domain.NewMoney(tx.Amount, tx.Currency).ToDecimal().String(),
			"",
			domain.NewMoney(tx.PayoutTip, tx.Currency).ToDecimal().String(),
			strconv.FormatInt(tx.UserID, 10),
			strconv.FormatInt(tx.ExtID, 10),
			"",
			"",
		}
		if tx.PayinAmount != nil {
			record[6] = domain.NewMoney(*tx.PayinAmount, tx.Currency).ToDecimal().String()
		}
		if tx.GwError != nil {
			record[10] = *tx.GwError
		}
		if tx.RejectCause != nil {
			record[11] = *tx.RejectCause
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
