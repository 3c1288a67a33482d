package transfer

import (
	"time"

	"github.com/amirasaad/cashfake/pkg/domain/ledger"
	"github.com/amirasaad/cashfake/pkg/money"
	"github.com/amirasaad/cashfake/webapi/common"
	"github.com/google/uuid"
)

// SendMoneyInput is the transfer request body. Amount may be a JSON number or a string.
type SendMoneyInput struct {
	RecipientAccount string             `json:"recipient_account" validate:"max=254"`
	Amount           common.AmountInput `json:"amount" swaggertype:"string" example:"25.00"`
	Note             string             `json:"note" validate:"max=280"`
	RecipientName    string             `json:"recipient_name" validate:"max=120"`
}

// WithdrawInput is the withdrawal request body.
type WithdrawInput struct {
	Amount common.AmountInput `json:"amount" swaggertype:"string" example:"25.00"`
}

// TransactionView describes a completed movement.
type TransactionView struct {
	ID              uuid.UUID    `json:"id"`
	Kind            ledger.Kind  `json:"type"`
	SenderNumber    string       `json:"senderAccountNumber"`
	RecipientNumber string       `json:"recipientAccountNumber"`
	SenderName      string       `json:"senderName"`
	RecipientName   string       `json:"recipientName"`
	Amount          money.Amount `json:"amount" swaggertype:"number"`
	Note            string       `json:"note"`
	CreatedAt       time.Time    `json:"timestamp"`
}

// MovementResponse is returned by send-money and withdraw.
type MovementResponse struct {
	Transaction TransactionView `json:"transaction"`
	UserBalance money.Amount    `json:"userBalance" swaggertype:"number"`
	Replayed    bool            `json:"replayed"`
}

func toView(e *ledger.Entry) TransactionView {
	return TransactionView{
		ID:              e.ID,
		Kind:            e.Kind,
		SenderNumber:    e.SourceNumber,
		RecipientNumber: e.DestinationLabel,
		SenderName:      e.SenderName,
		RecipientName:   e.CounterpartyName,
		Amount:          e.Amount,
		Note:            e.Note,
		CreatedAt:       e.CreatedAt,
	}
}
