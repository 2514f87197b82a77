package loan

import "github.com/google/uuid"

// ChangedTransactionDetail is the change-set a replay produces: every
// persisted transaction whose recomputed breakdown differed from its stored
// one, keyed by the reversed original's id and pointing at its replacement.
type ChangedTransactionDetail struct {
	NewTransactionMappings map[uuid.UUID]*Transaction `json:"new_transaction_mappings"`
}

// NewChangedTransactionDetail creates an empty change-set
func NewChangedTransactionDetail() *ChangedTransactionDetail {
	return &ChangedTransactionDetail{
		NewTransactionMappings: make(map[uuid.UUID]*Transaction),
	}
}

// AddReplacement records that the persisted transaction with the given id
// was reversed and replaced.
func (d *ChangedTransactionDetail) AddReplacement(originalID uuid.UUID, replacement *Transaction) {
	d.NewTransactionMappings[originalID] = replacement
}

// IsEmpty returns true if the replay changed nothing
func (d *ChangedTransactionDetail) IsEmpty() bool {
	return len(d.NewTransactionMappings) == 0
}
