package service

import (
	"context"
	"testing"

	"github.com/altynbek07/invbot/internal/domain"
	"github.com/altynbek07/invbot/internal/notify"
	"github.com/stretchr/testify/require"
)

func TestParseCallback(t *testing.T) {
	cases := []struct {
		name string
		body string
		ok   bool
		want func(t *testing.T, cb *Callback)
	}{
		{
			name: "deposit",
			body: `{"ExternalId":"client-77","Type":1,"Amount":12.5,"Currency":"USDT-TRC20","Id":9001,"TxId":"0xabc"}`,
			ok:   true,
			want: func(t *testing.T, cb *Callback) {
				require.Equal(t, "client-77", cb.ExternalID)
				require.Equal(t, domain.GatewayTypeDeposit, cb.Type)
				require.InEpsilon(t, 12.5, cb.Amount, 1e-9)
				require.NotNil(t, cb.GwTxID)
				require.Equal(t, int64(9001), *cb.GwTxID)
				require.NotNil(t, cb.BlockchainID)
				require.Equal(t, "0xabc", *cb.BlockchainID)
				require.Nil(t, cb.Error)
			},
		},
		{
			name: "numeric_external_id",
			body: `{"ExternalId":42,"Type":"1","Amount":"7.25"}`,
			ok:   true,
			want: func(t *testing.T, cb *Callback) {
				require.Equal(t, "42", cb.ExternalID)
				require.Equal(t, domain.GatewayTypeDeposit, cb.Type)
				require.InEpsilon(t, 7.25, cb.Amount, 1e-9)
				require.Equal(t, domain.DefaultCurrency, cb.Currency)
			},
		},
		{
			name: "error_object",
			body: `{"ExternalId":"x","Type":2,"Amount":5,"RequestId":42,"Error":{"Code":"insufficient_funds"}}`,
			ok:   true,
			want: func(t *testing.T, cb *Callback) {
				require.NotNil(t, cb.RequestID)
				require.Equal(t, int64(42), *cb.RequestID)
				require.NotNil(t, cb.Error)
				require.Equal(t, "insufficient_funds", *cb.Error)
			},
		},
		{
			name: "error_string",
			body: `{"ExternalId":"x","Type":2,"Amount":5,"RequestId":"42","Error":"timeout"}`,
			ok:   true,
			want: func(t *testing.T, cb *Callback) {
				require.NotNil(t, cb.RequestID)
				require.Equal(t, int64(42), *cb.RequestID)
				require.NotNil(t, cb.Error)
				require.Equal(t, "timeout", *cb.Error)
			},
		},
		{
			name: "error_null",
			body: `{"ExternalId":"x","Type":1,"Amount":5,"Error":null}`,
			ok:   true,
			want: func(t *testing.T, cb *Callback) {
				require.Nil(t, cb.Error)
			},
		},
		{name: "not_an_object", body: `[1,2,3]`, ok: false},
		{name: "missing_external_id", body: `{"Type":1,"Amount":5}`, ok: false},
		{name: "missing_type", body: `{"ExternalId":"x","Amount":5}`, ok: false},
		{name: "missing_amount", body: `{"ExternalId":"x","Type":1}`, ok: false},
		{name: "uncoercible_type", body: `{"ExternalId":"x","Type":"deposit","Amount":5}`, ok: false},
		{name: "garbage", body: `not json`, ok: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cb, err := ParseCallback([]byte(tc.body))
			if !tc.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tc.want != nil {
				tc.want(t, cb)
			}
		})
	}
}

func TestHandleDeposit(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{}
	svc := NewCallbackService(store, newTestDispatcher(sender), nil)
	user, _ := store.seedUserWithExt("client-77")

	gwTxID := int64(9001)
	blockchainID := "0xabc"
	tx, err := svc.Handle(context.Background(), &Callback{
		ExternalID:   "client-77",
		Type:         domain.GatewayTypeDeposit,
		Amount:       12.5,
		Currency:     "USDT-TRC20",
		GwTxID:       &gwTxID,
		BlockchainID: &blockchainID,
	})
	require.NoError(t, err)
	require.Equal(t, domain.TxTypePayin, tx.Type)
	require.Equal(t, domain.TxStatusGwPayed, tx.Status)
	require.Equal(t, int64(12_500_000), tx.Amount)
	require.NotNil(t, tx.PayinAmount)
	require.Equal(t, int64(12_500_000), *tx.PayinAmount)
	require.NotNil(t, tx.GwTxID)
	require.Equal(t, gwTxID, *tx.GwTxID)
	require.NotNil(t, tx.GwBlockchainID)
	require.Equal(t, blockchainID, *tx.GwBlockchainID)
	require.NotNil(t, tx.GwCallbackAt)
	require.Equal(t, user.ID, tx.UserID)

	// The user hears, and the admin group gets an approval request
	// carrying accept actions.
	require.Len(t, sender.sentTo(user.ChatID), 1)
	adminMsgs := sender.sentTo(testAdminGroup)
	require.Len(t, adminMsgs, 1)
	require.NotEmpty(t, adminMsgs[0].Actions)
}

func TestHandleDepositNoAdminGroup(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{}
	dispatcher := notify.NewDispatcher(sender, adminGroupUnset)
	svc := NewCallbackService(store, dispatcher, nil)
	user, _ := store.seedUserWithExt("client-77")

	_, err := svc.Handle(context.Background(), &Callback{
		ExternalID: "client-77",
		Type:       domain.GatewayTypeDeposit,
		Amount:     12.5,
	})
	require.NoError(t, err)

	// Only the user hears when no admin group is configured.
	require.Len(t, sender.sent(), 1)
	require.Equal(t, user.ChatID, sender.sent()[0].ChatID)
}

func TestHandleDepositError(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{}
	svc := NewCallbackService(store, newTestDispatcher(sender), nil)
	store.seedUserWithExt("client-77")

	gwErr := "address_expired"
	tx, err := svc.Handle(context.Background(), &Callback{
		ExternalID: "client-77",
		Type:       domain.GatewayTypeDeposit,
		Amount:     3,
		Currency:   "USDT-TRC20",
		Error:      &gwErr,
	})
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusGwRejected, tx.Status)
	require.NotNil(t, tx.GwError)
	require.Equal(t, gwErr, *tx.GwError)
	require.Nil(t, tx.GwTxID)
}

func TestHandleWithdrawal(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{}
	svc := NewCallbackService(store, newTestDispatcher(sender), nil)
	tx, user := seedTx(t, store, domain.TxTypePayout, domain.TxStatusGwSend)

	reqID := tx.ID
	gwTxID := int64(777)
	got, err := svc.Handle(context.Background(), &Callback{
		ExternalID: "client-77",
		Type:       domain.GatewayTypeWithdrawal,
		Amount:     25,
		Currency:   "USDT-TRC20",
		RequestID:  &reqID,
		GwTxID:     &gwTxID,
	})
	require.NoError(t, err)
	require.Equal(t, tx.ID, got.ID)
	require.Equal(t, domain.TxStatusGwPayed, got.Status)
	require.NotNil(t, got.GwTxID)
	require.Equal(t, gwTxID, *got.GwTxID)
	// Payout amounts stay what the user requested.
	require.Nil(t, got.PayinAmount)
	require.Equal(t, int64(25_000_000), got.Amount)

	// Payout callbacks go to the user and the admin group in full form.
	require.Len(t, sender.sentTo(user.ChatID), 1)
	require.Len(t, sender.sentTo(testAdminGroup), 1)
}

func TestHandleWithdrawalRejected(t *testing.T) {
	store := newMemStore()
	svc := NewCallbackService(store, newTestDispatcher(&recordingSender{}), nil)
	tx, _ := seedTx(t, store, domain.TxTypePayout, domain.TxStatusGwSend)

	reqID := tx.ID
	gwErr := "insufficient_funds"
	got, err := svc.Handle(context.Background(), &Callback{
		ExternalID: "client-77",
		Type:       domain.GatewayTypeWithdrawal,
		Amount:     25,
		RequestID:  &reqID,
		Error:      &gwErr,
	})
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusGwRejected, got.Status)
	require.NotNil(t, got.GwError)
	require.Equal(t, gwErr, *got.GwError)
	require.Equal(t, int64(25_000_000), got.Amount)
}

func TestHandleWithdrawalMissingRequestID(t *testing.T) {
	store := newMemStore()
	svc := NewCallbackService(store, newTestDispatcher(&recordingSender{}), nil)
	store.seedUserWithExt("client-77")

	_, err := svc.Handle(context.Background(), &Callback{
		ExternalID: "client-77",
		Type:       domain.GatewayTypeWithdrawal,
		Amount:     5,
	})
	require.ErrorIs(t, err, ErrTxNotFound)
}

func TestHandleUnknownExt(t *testing.T) {
	store := newMemStore()
	svc := NewCallbackService(store, newTestDispatcher(&recordingSender{}), nil)

	_, err := svc.Handle(context.Background(), &Callback{
		ExternalID: "nobody",
		Type:       domain.GatewayTypeDeposit,
		Amount:     5,
	})
	require.ErrorIs(t, err, ErrExtNotFound)
}

type fakeDeduper struct {
	seen map[string]bool
}

func (f *fakeDeduper) FirstSeen(ctx context.Context, key string) (bool, error) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func TestHandleDuplicateDelivery(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{}
	svc := NewCallbackService(store, newTestDispatcher(sender), &fakeDeduper{})
	store.seedUserWithExt("client-77")

	blockchainID := "0xabc"
	cb := &Callback{
		ExternalID:   "client-77",
		Type:         domain.GatewayTypeDeposit,
		Amount:       12.5,
		Currency:     "USDT-TRC20",
		BlockchainID: &blockchainID,
	}
	first, err := svc.Handle(context.Background(), cb)
	require.NoError(t, err)

	_, err = svc.Handle(context.Background(), cb)
	require.ErrorIs(t, err, ErrDuplicateCallback)

	// Exactly one transaction exists.
	var count int
	for range store.txs {
		count++
	}
	require.Equal(t, 1, count)
	require.NotNil(t, first)
}

func TestHandleDistinctDepositsSameAmount(t *testing.T) {
	store := newMemStore()
	sender := &recordingSender{}
	svc := NewCallbackService(store, newTestDispatcher(sender), &fakeDeduper{})
	store.seedUserWithExt("client-77")

	// Two real on-chain deposits of the same amount, told apart only by
	// their blockchain transaction id. Both must be recorded.
	for _, txID := range []string{"0xaaa", "0xbbb"} {
		txID := txID
		_, err := svc.Handle(context.Background(), &Callback{
			ExternalID:   "client-77",
			Type:         domain.GatewayTypeDeposit,
			Amount:       100,
			Currency:     "USDT-TRC20",
			BlockchainID: &txID,
		})
		require.NoError(t, err)
	}

	var count int
	for range store.txs {
		count++
	}
	require.Equal(t, 2, count)
}

func TestHandleDepositWithoutIdentifierNeverDeduped(t *testing.T) {
	store := newMemStore()
	svc := NewCallbackService(store, newTestDispatcher(&recordingSender{}), &fakeDeduper{})
	store.seedUserWithExt("client-77")

	// With no Id, TxId or RequestId there is nothing to tell two
	// deposits apart by, so deduplication must stand down.
	cb := &Callback{
		ExternalID: "client-77",
		Type:       domain.GatewayTypeDeposit,
		Amount:     100,
		Currency:   "USDT-TRC20",
	}
	require.Empty(t, cb.Key())

	_, err := svc.Handle(context.Background(), cb)
	require.NoError(t, err)
	_, err = svc.Handle(context.Background(), cb)
	require.NoError(t, err)

	var count int
	for range store.txs {
		count++
	}
	require.Equal(t, 2, count)
}
