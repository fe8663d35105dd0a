package service

import (
	"context"
	"fmt"

	"github.com/altynbek07/invbot/internal/domain"
	"github.com/altynbek07/invbot/internal/gateway"
	"github.com/altynbek07/invbot/internal/models"
	"github.com/altynbek07/invbot/internal/notify"
	"github.com/altynbek07/invbot/internal/observability"
)

// PayoutService handles user-initiated withdrawal requests. Every
// payout starts in NEW and waits for an admin decision; the gateway
// withdrawal itself happens during acceptance.
type PayoutService struct {
	store      QueryStore
	gateway    gateway.Gateway
	dispatcher *notify.Dispatcher
}

func NewPayoutService(store QueryStore, gw gateway.Gateway, dispatcher *notify.Dispatcher) *PayoutService {
	return &PayoutService{store: store, gateway: gw, dispatcher: dispatcher}
}

// PayoutRequest carries the user-entered withdrawal parameters.
type PayoutRequest struct {
	Currency   string
	Amount     int64 // micros
	Tip        int64 // micros
	DstAddress string
}

// RequestCrypto records a crypto withdrawal in NEW. The source address
// is resolved from the gateway up front so admins review the exact
// transfer that will be dispatched on acceptance.
func (s *PayoutService) RequestCrypto(ctx context.Context, user *models.User, ext *models.Ext, req PayoutRequest) (*models.Transaction, error) {
	if req.Amount <= 0 || req.Tip < 0 {
		return nil, ErrInvalidAmount
	}
	if req.DstAddress == "" {
		return nil, fmt.Errorf("%w: destination address required", ErrInvalidAmount)
	}

	amount := domain.NewMoney(req.Amount, req.Currency)
	srcAddr, err := s.gateway.GetAddress(ctx, ext.Ext, req.Currency, amount.Float())
	if err != nil {
		observability.IncrementGatewayCall("get_address", "error")
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if srcAddr == "" {
		observability.IncrementGatewayCall("get_address", "rejected")
		return nil, ErrGatewayUnavailable
	}
	observability.IncrementGatewayCall("get_address", "ok")

	tx := &models.Transaction{
		Type:             domain.TxTypePayout,
		Status:           domain.TxStatusNew,
		Currency:         req.Currency,
		Amount:           req.Amount,
		PayoutTip:        req.Tip,
		PayoutSrcAddress: &srcAddr,
		PayoutDstAddress: &req.DstAddress,
		UserID:           user.ID,
		ExtID:            ext.ID,
	}
	err = s.store.RunInTx(ctx, func(q Querier) error {
		return q.CreateTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	tx.User = user
	tx.Ext = ext

	s.dispatcher.NewTransaction(ctx, tx)
	return tx, nil
}

// RequestSpecial records a special withdrawal settling against the
// user's named account. Special payouts can only be accepted, never
// denied, so the admin message carries a single action.
func (s *PayoutService) RequestSpecial(ctx context.Context, user *models.User, ext *models.Ext, currency string, amountMicros int64) (*models.Transaction, error) {
	if amountMicros <= 0 {
		return nil, ErrInvalidAmount
	}

	tx := &models.Transaction{
		Type:     domain.TxTypeSpecialPayout,
		Status:   domain.TxStatusNew,
		Currency: currency,
		Amount:   amountMicros,
		UserID:   user.ID,
		ExtID:    ext.ID,
	}
	err := s.store.RunInTx(ctx, func(q Querier) error {
		return q.CreateTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	tx.User = user
	tx.Ext = ext

	s.dispatcher.NewTransaction(ctx, tx)
	return tx, nil
}
