package payments

import "context"

// PreferenceRequest описывает платёжное намерение, передаваемое шлюзу.
type PreferenceRequest struct {
	Title             string
	PayerEmail        string
	AmountBRLCents    int64
	ExternalReference string
	SuccessURL        string
	FailureURL        string
	PendingURL        string
	NotificationURL   string
}

// Preference — созданная на стороне шлюза платёжная сессия.
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// PaymentInfo — состояние платежа по данным шлюза.
type PaymentInfo struct {
	ID                string
	Status            string
	ExternalReference string
	PaymentMethodID   string
	CardLastFour      string
}

// Approved reports whether the gateway considers the payment settled.
func (p *PaymentInfo) Approved() bool {
	return p.Status == "approved"
}

// Gateway — контракт платёжного шлюза. Единственная реализация — Mercado Pago,
// интерфейс нужен для подмены в тестах.
type Gateway interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*PaymentInfo, error)
}
