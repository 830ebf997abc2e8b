package ingest

import (
	"github.com/registralia/borme-engine/internal/storage"
)

// Merge folds a newly observed sighting of a company into its stored row and
// returns the result. Identity fields (name, normalized name, province) never
// change. Descriptive fields fill in only when the stored row is missing
// them. Capital only rises: the stored value is the highest observed, so a
// capital increase lifts it and a stale lower figure never clobbers it.
// Status and last-seen date always take the incoming value; first-seen never
// moves once set. Pure function: neither argument is modified.
func Merge(existing, incoming storage.Company) storage.Company {
	merged := existing

	if merged.LegalForm == nil {
		merged.LegalForm = incoming.LegalForm
	}
	if merged.Locality == nil {
		merged.Locality = incoming.Locality
	}
	if merged.Address == nil {
		merged.Address = incoming.Address
	}
	if merged.Purpose == nil {
		merged.Purpose = incoming.Purpose
	}
	if merged.CNAECode == nil {
		merged.CNAECode = incoming.CNAECode
		merged.CNAEInferred = incoming.CNAEInferred
	}
	if merged.IncorporationDate == nil {
		merged.IncorporationDate = incoming.IncorporationDate
	}
	if merged.RegistryData == nil {
		merged.RegistryData = incoming.RegistryData
	}
	if merged.FirstSeenDate == nil {
		merged.FirstSeenDate = incoming.FirstSeenDate
	}

	if incoming.CapitalEUR.Valid &&
		(!merged.CapitalEUR.Valid || incoming.CapitalEUR.Decimal.GreaterThan(merged.CapitalEUR.Decimal)) {
		merged.CapitalEUR = incoming.CapitalEUR
	}

	merged.Status = incoming.Status
	merged.LastSeenDate = incoming.LastSeenDate

	return merged
}
