package notifications

import "hrops/internal/platform/querier"

// Store persists notifications and per-tenant delivery settings. It takes
// the querier interface so callers can hand it a pool or an open tx.
type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}
