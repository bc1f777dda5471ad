package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BatchItem is one element of a batch mutation. A non-empty DebtID makes it
// an update to an existing pair; otherwise it is a creation against the
// given counterparty user.
type BatchItem struct {
	DebtID             string
	CounterpartyUserID string
	CurrencyCode       string
	Amount             decimal.Decimal
	Timestamp          time.Time
	Note               string
	ReceiptID          *string
}

func (i BatchItem) IsUpdate() bool { return i.DebtID != "" }

// NaturalKey identifies the item for duplicate detection: the target debt id
// for updates, the counterparty+currency tuple for creations. The key is
// built from normalized values so casing or padding differences cannot make
// two writes to the same target look distinct.
func (i BatchItem) NaturalKey() string {
	if i.IsUpdate() {
		return "debt:" + strings.TrimSpace(i.DebtID)
	}
	return fmt.Sprintf("counterparty:%s:%s",
		strings.TrimSpace(i.CounterpartyUserID),
		strings.ToUpper(strings.TrimSpace(i.CurrencyCode)))
}

// BatchOutcome is the tagged per-item result. Exactly one of Debt and Err is
// set; the outcome list returned for a batch is positionally aligned to the
// input list, so callers zip the two by index.
type BatchOutcome struct {
	Debt *DebtRecord
	Err  *Error
}

func (o BatchOutcome) OK() bool { return o.Err == nil }

func SuccessOutcome(debt DebtRecord) BatchOutcome {
	return BatchOutcome{Debt: &debt}
}

func FailedOutcome(err error) BatchOutcome {
	return BatchOutcome{Err: AsError(err)}
}
