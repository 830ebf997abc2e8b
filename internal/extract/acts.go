package extract

import (
	"regexp"
	"strings"

	"github.com/registralia/borme-engine/internal/storage"
)

// ActKeyword binds an act label as printed in Section A of the gazette to its
// canonical act type.
type ActKeyword struct {
	Label string
	Type  storage.ActType
}

// DefaultActKeywords returns the act labels recognized in Section A. Table
// order matters: at a given text position labels are tried in order, so more
// specific labels precede ones they share a prefix with. The table is data,
// not control flow, because the source's wording drifts over time.
func DefaultActKeywords() []ActKeyword {
	return []ActKeyword{
		{"Constitución", storage.ActTypeIncorporation},
		{"Incorporación", storage.ActTypeIncorporation},
		{"Nombramientos", storage.ActTypeAppointments},
		{"Ceses/Dimisiones", storage.ActTypeResignations},
		{"Revocaciones", storage.ActTypeRevocations},
		{"Cambio de domicilio social", storage.ActTypeAddressChange},
		{"Cambio de objeto social", storage.ActTypePurposeChange},
		{"Cambio de denominación social", storage.ActTypeNameChange},
		{"Ampliación de capital", storage.ActTypeCapitalIncrease},
		{"Reducción de capital", storage.ActTypeCapitalDecrease},
		{"Modificación de estatutos", storage.ActTypeBylawChange},
		{"Disolución", storage.ActTypeDissolution},
		{"Liquidación", storage.ActTypeLiquidation},
		{"Extinción", storage.ActTypeExtinction},
		{"Fusión", storage.ActTypeMerger},
		{"Escisión", storage.ActTypeSpinOff},
		{"Situación concursal", storage.ActTypeInsolvency},
		{"Depósito de cuentas", storage.ActTypeAccountsFiling},
		{"Reelecciones", storage.ActTypeReElection},
		{"Emisión de obligaciones", storage.ActTypeBondIssuance},
		{"Transformación de sociedad", storage.ActTypeTransformation},
		{"Cancelaciones de oficio de nombramientos", storage.ActTypeOfficerCancel},
		{"Declaración de unipersonalidad", storage.ActTypeSoleShareholder},
		{"Pérdida del carácter de unipersonalidad", storage.ActTypeSoleShareholderEnd},
		{"Ampliación de objeto social", storage.ActTypePurposeExtension},
		{"Fe de erratas", storage.ActTypeErrata},
		{"Otros conceptos", storage.ActTypeOther},
	}
}

// officerEventTypes maps the act types whose segments carry officer lines to
// the event type those lines produce.
var officerEventTypes = map[storage.ActType]storage.OfficerEventType{
	storage.ActTypeAppointments: storage.OfficerEventAppointment,
	storage.ActTypeResignations: storage.OfficerEventResignation,
	storage.ActTypeRevocations:  storage.OfficerEventRevocation,
	storage.ActTypeReElection:   storage.OfficerEventReElection,
}

// OfficerEventTypeFor returns the officer event type derived from an act
// type, with ok=false for act types that carry no officer lines.
func OfficerEventTypeFor(t storage.ActType) (storage.OfficerEventType, bool) {
	et, ok := officerEventTypes[t]
	return et, ok
}

// compileActPattern builds the segment-boundary pattern from an act keyword
// table, plus the lookup from lowercased label to canonical type.
func compileActPattern(keywords []ActKeyword) (*regexp.Regexp, map[string]storage.ActType) {
	quoted := make([]string, 0, len(keywords))
	types := make(map[string]storage.ActType, len(keywords))
	for _, kw := range keywords {
		quoted = append(quoted, regexp.QuoteMeta(kw.Label))
		types[strings.ToLower(kw.Label)] = kw.Type
	}
	re := regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)\.\s*`)
	return re, types
}
