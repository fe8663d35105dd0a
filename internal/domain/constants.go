package domain

// TxType identifies how a transaction moves value and which settlement
// path it takes. Special variants settle against a named account instead
// of a gateway-issued address.
type TxType int16

const (
	TxTypePayin TxType = iota
	TxTypePayout
	TxTypeSpecialPayin
	TxTypeSpecialPayout
)

func (t TxType) String() string {
	switch t {
	case TxTypePayin:
		return "payin"
	case TxTypePayout:
		return "payout"
	case TxTypeSpecialPayin:
		return "special_payin"
	case TxTypeSpecialPayout:
		return "special_payout"
	default:
		return "unknown"
	}
}

// IsPayin reports whether value flows towards the platform.
func (t TxType) IsPayin() bool {
	return t == TxTypePayin || t == TxTypeSpecialPayin
}

// TxStatus is a transaction lifecycle state. Transitions are monotonic:
// NEW -> GW_ERROR | GW_PAYED | GW_REJECTED | GW_SEND -> ADMIN_ACCEPTED | ADMIN_REJECTED.
type TxStatus int16

const (
	TxStatusNew TxStatus = iota
	TxStatusGwError
	TxStatusGwPayed
	TxStatusGwRejected
	TxStatusGwSend
	TxStatusAdminAccepted
	TxStatusAdminRejected
)

func (s TxStatus) String() string {
	switch s {
	case TxStatusNew:
		return "NEW"
	case TxStatusGwError:
		return "GW_ERROR"
	case TxStatusGwPayed:
		return "GW_PAYED"
	case TxStatusGwRejected:
		return "GW_REJECTED"
	case TxStatusGwSend:
		return "GW_SEND"
	case TxStatusAdminAccepted:
		return "ADMIN_ACCEPTED"
	case TxStatusAdminRejected:
		return "ADMIN_REJECTED"
	default:
		return "unknown"
	}
}

// IsError reports whether the gateway rejected or failed the transaction.
func (s TxStatus) IsError() bool {
	return s == TxStatusGwError || s == TxStatusGwRejected
}

// CanAccept reports whether an admin may accept a transaction in the
// given type/status combination.
func CanAccept(t TxType, s TxStatus) bool {
	switch t {
	case TxTypePayin:
		return s == TxStatusGwPayed
	case TxTypePayout, TxTypeSpecialPayin, TxTypeSpecialPayout:
		return s == TxStatusNew
	default:
		return false
	}
}

// CanDeny reports whether an admin may deny a transaction in the given
// type/status combination. Plain pay-ins are never deniable: the money
// has already arrived at the gateway. Special pay-outs may only be
// accepted, never denied.
func CanDeny(t TxType, s TxStatus) bool {
	switch t {
	case TxTypePayout, TxTypeSpecialPayin:
		return s == TxStatusNew
	default:
		return false
	}
}

// Gateway callback transaction type codes.
const (
	GatewayTypeDeposit    = 1
	GatewayTypeWithdrawal = 2
)

// DefaultCurrency is assumed when a gateway callback omits the currency.
const DefaultCurrency = "USDT-TRC20"

// SettingAdminGroup is the settings-table key holding the designated
// admin group chat id.
const SettingAdminGroup = "admin_group"
