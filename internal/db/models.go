package db

import (
	"time"

	"github.com/google/uuid"
)

// Engagement records the identity of a rental engagement this worker has
// rendered documents for. The authoritative engagement lives in the rental
// system; this row only tracks when it was last seen here.
type Engagement struct {
	ID           uuid.UUID
	Numero       string
	Chantier     string
	SupplierName string
	PeriodStart  *time.Time
	PeriodEnd    *time.Time
	FirstSeenAt  time.Time
	LastSeenAt   time.Time
}

// GeneratedDocument is one row of the document generation ledger.
// TotalAmount is the recomputed fiche total at generation time, stored as
// its 3-decimal display string.
type GeneratedDocument struct {
	ID           uuid.UUID
	EngagementID *uuid.UUID
	FicheNumber  string
	PeriodStart  *time.Time
	PeriodEnd    *time.Time
	Filename     string
	ByteSize     int
	TotalAmount  string
	EntryCount   int
	OutputMode   string
	UrgencyTier  string
	GeneratedAt  time.Time
}
