package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type TransactionType string

const (
	TransactionDeposit        TransactionType = "DEPOSIT"
	TransactionPurchaseTicket TransactionType = "PURCHASE_TICKET"
)

// TransactionStatus: ровно один терминальный переход из PENDING.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
)

// TransactionDetails — типизированные метаданные записи леджера,
// сериализуются в JSONB на границе хранения.
type TransactionDetails struct {
	Description   string `json:"description,omitempty"`
	GatewayStatus string `json:"gateway_status,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	CardLastFour  string `json:"card_last_four,omitempty"`
}

func (d TransactionDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *TransactionDetails) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = TransactionDetails{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported type %T for TransactionDetails", src)
	}
}

// Transaction — запись леджера RiffaCoins. AmountBRLCents заполняется только
// для депозитов через платёжный шлюз (сумма в сентаво).
type Transaction struct {
	ID                   string             `json:"id" db:"id"`
	UserID               string             `json:"user_id" db:"user_id"`
	Type                 TransactionType    `json:"type" db:"type"`
	Status               TransactionStatus  `json:"status" db:"status"`
	AmountRC             int64              `json:"amount_rc" db:"amount_rc"`
	AmountBRLCents       *int64             `json:"amount_brl_cents,omitempty" db:"amount_brl_cents"`
	GatewayTransactionID *string            `json:"gateway_transaction_id,omitempty" db:"gateway_transaction_id"`
	Details              TransactionDetails `json:"details" db:"details"`
	CreatedAt            time.Time          `json:"created_at" db:"created_at"`
}
