package core

import (
	"strings"
	"time"
)

// TransactionInput is the loosely typed shape of a create/update request.
// Every field arrives as text; Parse turns it into a validated Transaction.
type TransactionInput struct {
	Type        string
	Amount      string
	Category    string
	Description string
	Date        string
}

// Parse converts the input into a Transaction and validates it against now.
// Every failure is a *ValidationError naming the offending field.
func (in TransactionInput) Parse(now time.Time) (Transaction, error) {
	typ, err := ParseType(in.Type)
	if err != nil {
		return Transaction{}, Invalid("type", err)
	}
	amount, err := ParseMoney(in.Amount)
	if err != nil {
		return Transaction{}, Invalid("amount", err)
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return Transaction{}, Invalid("date", err)
	}

	tx := Transaction{
		Type:        typ,
		Amount:      amount,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Date:        date,
	}
	if err := tx.Validate(now); err != nil {
		return Transaction{}, err
	}
	return tx, nil
}

// InputFrom is the inverse of Parse, used to prefill an edit form.
func InputFrom(tx Transaction) TransactionInput {
	return TransactionInput{
		Type:        tx.Type.String(),
		Amount:      tx.Amount.String(),
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.Date.String(),
	}
}
