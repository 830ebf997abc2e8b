// Package storage provides database models and repositories for the ingestion engine.
package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompanyStatus represents the registry status of a company.
type CompanyStatus string

const (
	CompanyStatusActive        CompanyStatus = "active"
	CompanyStatusDissolved     CompanyStatus = "dissolved"
	CompanyStatusInLiquidation CompanyStatus = "in_liquidation"
	CompanyStatusExtinguished  CompanyStatus = "extinguished"
)

// statusPrecedence orders company statuses by severity. Within one gazette
// block the most severe observed status wins; at merge time the incoming
// status always replaces the stored one.
var statusPrecedence = map[CompanyStatus]int{
	CompanyStatusActive:        0,
	CompanyStatusDissolved:     1,
	CompanyStatusInLiquidation: 2,
	CompanyStatusExtinguished:  3,
}

// StatusRank returns the precedence rank of a status. Unknown statuses rank
// lowest so they never displace a recorded one.
func StatusRank(s CompanyStatus) int {
	return statusPrecedence[s]
}

// ActType represents the canonical type of a published company act.
type ActType string

const (
	ActTypeIncorporation      ActType = "incorporation"
	ActTypeAppointments       ActType = "appointments"
	ActTypeResignations       ActType = "resignations"
	ActTypeRevocations        ActType = "revocations"
	ActTypeAddressChange      ActType = "address_change"
	ActTypePurposeChange      ActType = "purpose_change"
	ActTypeNameChange         ActType = "name_change"
	ActTypeCapitalIncrease    ActType = "capital_increase"
	ActTypeCapitalDecrease    ActType = "capital_decrease"
	ActTypeBylawChange        ActType = "bylaw_change"
	ActTypeDissolution        ActType = "dissolution"
	ActTypeLiquidation        ActType = "liquidation"
	ActTypeExtinction         ActType = "extinction"
	ActTypeMerger             ActType = "merger"
	ActTypeSpinOff            ActType = "spin_off"
	ActTypeInsolvency         ActType = "insolvency"
	ActTypeAccountsFiling     ActType = "accounts_filing"
	ActTypeReElection         ActType = "re_election"
	ActTypeBondIssuance       ActType = "bond_issuance"
	ActTypeTransformation     ActType = "transformation"
	ActTypeOfficerCancel      ActType = "officer_cancellation"
	ActTypeSoleShareholder    ActType = "sole_shareholder"
	ActTypeSoleShareholderEnd ActType = "sole_shareholder_loss"
	ActTypePurposeExtension   ActType = "purpose_extension"
	ActTypeErrata             ActType = "errata"
	ActTypeOther              ActType = "other"
)

// OfficerEventType represents the kind of officer/role event.
type OfficerEventType string

const (
	OfficerEventAppointment OfficerEventType = "appointment"
	OfficerEventResignation OfficerEventType = "resignation"
	OfficerEventRevocation  OfficerEventType = "revocation"
	OfficerEventReElection  OfficerEventType = "re_election"
)

// JobStatus represents the lifecycle status of a per-date ingestion job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusFetching  JobStatus = "fetching"
	JobStatusParsing   JobStatus = "parsing"
	JobStatusStoring   JobStatus = "storing"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Company represents a legal entity observed in the gazette. Identity is the
// pair (NormalizedName, Province); repeated sightings merge into the same row.
//
// Gazette dates are civil dates kept as ISO YYYY-MM-DD strings: they are
// identifiers in the source, compare lexicographically in date order, and
// round-trip identically through the SQLite and Postgres drivers.
type Company struct {
	ID                uuid.UUID           `json:"id" db:"id"`
	Name              string              `json:"name" db:"name"`
	NormalizedName    string              `json:"normalized_name" db:"normalized_name"`
	LegalForm         *string             `json:"legal_form,omitempty" db:"legal_form"`
	Province          *string             `json:"province,omitempty" db:"province"`
	Locality          *string             `json:"locality,omitempty" db:"locality"`
	Address           *string             `json:"address,omitempty" db:"address"`
	Purpose           *string             `json:"purpose,omitempty" db:"purpose"`
	CNAECode          *string             `json:"cnae_code,omitempty" db:"cnae_code"`
	CNAEInferred      bool                `json:"cnae_inferred" db:"cnae_inferred"`
	CapitalEUR        decimal.NullDecimal `json:"capital_eur,omitempty" db:"capital_eur"`
	IncorporationDate *string             `json:"incorporation_date,omitempty" db:"incorporation_date"`
	Status            CompanyStatus       `json:"status" db:"status"`
	RegistryData      *string             `json:"registry_data,omitempty" db:"registry_data"`
	FirstSeenDate     *string             `json:"first_seen_date,omitempty" db:"first_seen_date"`
	LastSeenDate      *string             `json:"last_seen_date,omitempty" db:"last_seen_date"`
	CreatedAt         time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" db:"updated_at"`
}

// CompanyAct represents a single published act for a company. Deduplicated by
// (company, source document, act type).
type CompanyAct struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CompanyID   uuid.UUID `json:"company_id" db:"company_id"`
	ActType     ActType   `json:"act_type" db:"act_type"`
	GazetteDate string    `json:"gazette_date" db:"gazette_date"`
	DocumentID  string    `json:"document_id" db:"document_id"`
	SourceURL   *string   `json:"source_url,omitempty" db:"source_url"`
	RawText     *string   `json:"raw_text,omitempty" db:"raw_text"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// OfficerEvent represents an officer appointment, resignation, revocation or
// re-election published for a company. Deduplicated by (company, person, role,
// event type, gazette date).
type OfficerEvent struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	CompanyID   uuid.UUID        `json:"company_id" db:"company_id"`
	ActID       *uuid.UUID       `json:"act_id,omitempty" db:"act_id"`
	PersonName  string           `json:"person_name" db:"person_name"`
	Role        string           `json:"role" db:"role"`
	EventType   OfficerEventType `json:"event_type" db:"event_type"`
	GazetteDate string           `json:"gazette_date" db:"gazette_date"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// IngestionJob represents the job log row for one gazette date.
type IngestionJob struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	GazetteDate      string     `json:"gazette_date" db:"gazette_date"`
	Status           JobStatus  `json:"status" db:"status"`
	DocumentsFound   int        `json:"documents_found" db:"documents_found"`
	DocumentsParsed  int        `json:"documents_parsed" db:"documents_parsed"`
	CompaniesFound   int        `json:"companies_found" db:"companies_found"`
	CompaniesCreated int        `json:"companies_created" db:"companies_created"`
	CompaniesUpdated int        `json:"companies_updated" db:"companies_updated"`
	ActsCreated      int        `json:"acts_created" db:"acts_created"`
	ErrorMessage     *string    `json:"error_message,omitempty" db:"error_message"`
	StartedAt        *time.Time `json:"started_at,omitempty" db:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}
