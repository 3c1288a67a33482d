package ledger

import (
	"time"

	"github.com/amirasaad/cashfake/pkg/money"
	"github.com/google/uuid"
)

// EntryRecordedType names the EntryRecorded event.
const EntryRecordedType = "Ledger.EntryRecorded"

// EntryRecorded is published once an entry and its balance changes have committed.
type EntryRecorded struct {
	EntryID           uuid.UUID    `json:"entryId"`
	Kind              Kind         `json:"kind"`
	OwnerID           uuid.UUID    `json:"ownerId"`
	SourceNumber      string       `json:"sourceNumber"`
	DestinationNumber *string      `json:"destinationNumber,omitempty"`
	DestinationLabel  string       `json:"destinationLabel"`
	Amount            money.Amount `json:"amount"`
	// OwnerBalance is the owner's balance right after the entry.
	OwnerBalance money.Amount `json:"ownerBalance"`
	CreatedAt    time.Time    `json:"createdAt"`
}

func (*EntryRecorded) Type() string { return EntryRecordedType }

// Key routes every event of one owner to the same partition.
func (e *EntryRecorded) Key() string { return e.OwnerID.String() }

// NewEntryRecorded describes a committed entry.
func NewEntryRecorded(e *Entry, ownerBalance money.Amount) *EntryRecorded {
	ev := &EntryRecorded{
		EntryID:          e.ID,
		Kind:             e.Kind,
		OwnerID:          e.OwnerID,
		SourceNumber:     e.SourceNumber,
		DestinationLabel: e.DestinationLabel,
		Amount:           e.Amount,
		OwnerBalance:     ownerBalance,
		CreatedAt:        e.CreatedAt,
	}
	if e.DestinationNumber != nil {
		n := *e.DestinationNumber
		ev.DestinationNumber = &n
	}
	return ev
}
