// Package normalize canonicalizes extracted company fields before storage:
// name and province normalization, legal-form and locality extraction,
// legacy-currency conversion, activity-code inference and status inference.
package normalize

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/registralia/borme-engine/internal/extract"
	"github.com/registralia/borme-engine/internal/storage"
)

// pesetasPerEuro is the fixed conversion rate in force since 2002-01-01.
var pesetasPerEuro = decimal.NewFromFloat(166.386)

// Company converts one extracted record into a storage row ready for the
// merge step. region is the section label the record's source document was
// published under; gazetteDate is the ISO publication date. Pure function:
// no I/O, no clock.
func Company(rec *extract.CompanyRecord, region, gazetteDate string) storage.Company {
	name := strings.TrimRight(strings.TrimSpace(rec.Name), ".")

	company := storage.Company{
		Name:           name,
		NormalizedName: Name(name),
		Status:         StatusFromActs(rec.Acts),
		FirstSeenDate:  &gazetteDate,
		LastSeenDate:   &gazetteDate,
	}

	if form, ok := LegalForm(name); ok {
		company.LegalForm = &form
	}

	// Province: prefer the address parenthetical, fall back to the section
	// label. An unrecognized label is kept raw rather than losing the record.
	province := ""
	if rec.Address != "" {
		if raw, ok := ProvinceFromAddress(rec.Address); ok {
			if canonical, ok := CanonicalProvince(raw); ok {
				province = canonical
			}
		}
	}
	if province == "" {
		if canonical, ok := CanonicalProvince(region); ok {
			province = canonical
		} else {
			province = strings.TrimSpace(region)
		}
	}
	company.Province = &province

	if rec.Address != "" {
		address := rec.Address
		company.Address = &address
		if locality, ok := LocalityFromAddress(rec.Address); ok {
			company.Locality = &locality
		}
	}

	if rec.Purpose != "" {
		purpose := rec.Purpose
		company.Purpose = &purpose
		if division, inferred, ok := InferCNAE(rec.Purpose); ok {
			company.CNAECode = &division
			company.CNAEInferred = inferred
		}
	}

	if rec.Capital.Valid {
		amount := rec.Capital.Decimal
		if rec.CapitalUnit == extract.CurrencyPTS {
			amount = amount.DivRound(pesetasPerEuro, 2)
		}
		company.CapitalEUR = decimal.NullDecimal{Decimal: amount, Valid: true}
	}

	if rec.StartDate != "" {
		if iso, ok := ParseCivilDate(rec.StartDate); ok {
			company.IncorporationDate = &iso
		}
	}

	if rec.RegistryRef != "" {
		ref := rec.RegistryRef
		company.RegistryData = &ref
	}

	return company
}

// StatusFromActs infers the company status from the act types of one block.
// Dissolution, liquidation and extinction acts override the default active
// status; when several appear in the same block the most severe wins,
// extinction over liquidation over dissolution.
func StatusFromActs(acts []extract.Act) storage.CompanyStatus {
	status := storage.CompanyStatusActive
	for _, act := range acts {
		var observed storage.CompanyStatus
		switch act.Type {
		case storage.ActTypeDissolution:
			observed = storage.CompanyStatusDissolved
		case storage.ActTypeLiquidation:
			observed = storage.CompanyStatusInLiquidation
		case storage.ActTypeExtinction:
			observed = storage.CompanyStatusExtinguished
		default:
			continue
		}
		if storage.StatusRank(observed) > storage.StatusRank(status) {
			status = observed
		}
	}
	return status
}
