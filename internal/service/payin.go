package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/altynbek07/invbot/internal/domain"
	"github.com/altynbek07/invbot/internal/gateway"
	"github.com/altynbek07/invbot/internal/models"
	"github.com/altynbek07/invbot/internal/notify"
	"github.com/altynbek07/invbot/internal/observability"
	"github.com/jackc/pgx/v5"
)

// PayinService handles user-initiated deposit requests. Crypto pay-ins
// only fetch a deposit address; the transaction itself is born later,
// from the gateway callback. Special pay-ins settle against a named
// account and need an admin decision, so those create a row up front.
type PayinService struct {
	store      QueryStore
	gateway    gateway.Gateway
	dispatcher *notify.Dispatcher
}

func NewPayinService(store QueryStore, gw gateway.Gateway, dispatcher *notify.Dispatcher) *PayinService {
	return &PayinService{store: store, gateway: gw, dispatcher: dispatcher}
}

// RequestAddress asks the gateway for a deposit address bound to the
// user's external identifier. No transaction row is created; the
// deposit callback does that once funds actually arrive.
func (s *PayinService) RequestAddress(ctx context.Context, ext *models.Ext, currency string, amountMicros int64) (string, error) {
	if amountMicros <= 0 {
		return "", ErrInvalidAmount
	}
	amount := domain.NewMoney(amountMicros, currency)
	addr, err := s.gateway.GetAddress(ctx, ext.Ext, currency, amount.Float())
	if err != nil {
		observability.IncrementGatewayCall("get_address", "error")
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if addr == "" {
		observability.IncrementGatewayCall("get_address", "rejected")
		return "", ErrGatewayUnavailable
	}
	observability.IncrementGatewayCall("get_address", "ok")
	return addr, nil
}

// RequestSpecial records a special pay-in in NEW and asks the admin
// group for a decision. The caller supplies the settlement account the
// user claims to have paid into.
func (s *PayinService) RequestSpecial(ctx context.Context, user *models.User, ext *models.Ext, currency string, amountMicros int64) (*models.Transaction, error) {
	if amountMicros <= 0 {
		return nil, ErrInvalidAmount
	}

	tx := &models.Transaction{
		Type:     domain.TxTypeSpecialPayin,
		Status:   domain.TxStatusNew,
		Currency: currency,
		Amount:   amountMicros,
		UserID:   user.ID,
		ExtID:    ext.ID,
	}
	err := s.store.RunInTx(ctx, func(q Querier) error {
		if user.AccountID != nil && user.Account == nil {
			account, err := q.GetAccount(ctx, *user.AccountID)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("load settlement account: %w", err)
			}
			user.Account = account
		}
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
