package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// errorMessageLimit caps stored job error messages.
const errorMessageLimit = 500

// DB represents a database connection interface. Both *sql.DB and *sql.Tx
// satisfy it, so repositories run unchanged inside transactions.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CompanyRepository handles company CRUD operations.
type CompanyRepository struct {
	db DB
}

// NewCompanyRepository creates a new company repository.
func NewCompanyRepository(db DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

// Create creates a new company.
func (r *CompanyRepository) Create(ctx context.Context, company *Company) error {
	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	if company.Status == "" {
		company.Status = CompanyStatusActive
	}
	company.CreatedAt = time.Now()
	company.UpdatedAt = time.Now()

	query := `
		INSERT INTO companies (id, name, normalized_name, legal_form, province, locality,
			address, purpose, cnae_code, cnae_inferred, capital_eur, incorporation_date,
			status, registry_data, first_seen_date, last_seen_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.db.ExecContext(ctx, query,
		company.ID, company.Name, company.NormalizedName, company.LegalForm,
		company.Province, company.Locality, company.Address, company.Purpose,
		company.CNAECode, company.CNAEInferred, company.CapitalEUR, company.IncorporationDate,
		company.Status, company.RegistryData, company.FirstSeenDate, company.LastSeenDate,
		company.CreatedAt, company.UpdatedAt,
	)
	return err
}

// GetByID retrieves a company by ID.
func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*Company, error) {
	query := `
		SELECT id, name, normalized_name, legal_form, province, locality, address,
			purpose, cnae_code, cnae_inferred, capital_eur, incorporation_date, status,
			registry_data, first_seen_date, last_seen_date, created_at, updated_at
		FROM companies WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByIdentity retrieves a company by its identity key, the pair of
// normalized name and province.
func (r *CompanyRepository) GetByIdentity(ctx context.Context, normalizedName, province string) (*Company, error) {
	query := `
		SELECT id, name, normalized_name, legal_form, province, locality, address,
			purpose, cnae_code, cnae_inferred, capital_eur, incorporation_date, status,
			registry_data, first_seen_date, last_seen_date, created_at, updated_at
		FROM companies WHERE normalized_name = $1 AND province = $2
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, normalizedName, province))
}

// Update updates every mutable field of a company.
func (r *CompanyRepository) Update(ctx context.Context, company *Company) error {
	company.UpdatedAt = time.Now()

	query := `
		UPDATE companies SET
			legal_form = $1, province = $2, locality = $3, address = $4, purpose = $5,
			cnae_code = $6, cnae_inferred = $7, capital_eur = $8, incorporation_date = $9,
			status = $10, registry_data = $11, first_seen_date = $12, last_seen_date = $13,
			updated_at = $14
		WHERE id = $15
	`
	result, err := r.db.ExecContext(ctx, query,
		company.LegalForm, company.Province, company.Locality, company.Address,
		company.Purpose, company.CNAECode, company.CNAEInferred, company.CapitalEUR,
		company.IncorporationDate, company.Status, company.RegistryData,
		company.FirstSeenDate, company.LastSeenDate, company.UpdatedAt, company.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored companies.
func (r *CompanyRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies`).Scan(&n)
	return n, err
}

// ListFalseHeaders lists companies whose stored name starts with an opening
// parenthesis. These are legacy artifacts of province annotations mistaken
// for company headers.
func (r *CompanyRepository) ListFalseHeaders(ctx context.Context) ([]*Company, error) {
	query := `
		SELECT id, name, normalized_name, legal_form, province, locality, address,
			purpose, cnae_code, cnae_inferred, capital_eur, incorporation_date, status,
			registry_data, first_seen_date, last_seen_date, created_at, updated_at
		FROM companies WHERE name LIKE '(%' ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []*Company
	for rows.Next() {
		company, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}
	return companies, rows.Err()
}

// Delete removes a company together with its acts and officer events.
// Children are deleted explicitly so behavior does not depend on foreign key
// enforcement being enabled.
func (r *CompanyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM officer_events WHERE company_id = $1`, id); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM company_acts WHERE company_id = $1`, id); err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CompanyRepository) scanOne(row *sql.Row) (*Company, error) {
	company := &Company{}
	err := row.Scan(
		&company.ID, &company.Name, &company.NormalizedName, &company.LegalForm,
		&company.Province, &company.Locality, &company.Address, &company.Purpose,
		&company.CNAECode, &company.CNAEInferred, &company.CapitalEUR,
		&company.IncorporationDate, &company.Status, &company.RegistryData,
		&company.FirstSeenDate, &company.LastSeenDate, &company.CreatedAt, &company.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return company, nil
}

func (r *CompanyRepository) scanRow(rows *sql.Rows) (*Company, error) {
	company := &Company{}
	err := rows.Scan(
		&company.ID, &company.Name, &company.NormalizedName, &company.LegalForm,
		&company.Province, &company.Locality, &company.Address, &company.Purpose,
		&company.CNAECode, &company.CNAEInferred, &company.CapitalEUR,
		&company.IncorporationDate, &company.Status, &company.RegistryData,
		&company.FirstSeenDate, &company.LastSeenDate, &company.CreatedAt, &company.UpdatedAt,
	)
	return company, err
}

// ActRepository handles company act operations.
type ActRepository struct {
	db DB
}

// NewActRepository creates a new act repository.
func NewActRepository(db DB) *ActRepository {
	return &ActRepository{db: db}
}

// Create inserts an act unless the uniqueness key (company, document, act type)
// already exists. Returns true when a row was inserted.
func (r *ActRepository) Create(ctx context.Context, act *CompanyAct) (bool, error) {
	if act.ID == uuid.Nil {
		act.ID = uuid.New()
	}
	act.CreatedAt = time.Now()

	query := `
		INSERT INTO company_acts (id, company_id, act_type, gazette_date,
			document_id, source_url, raw_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id, document_id, act_type) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		act.ID, act.CompanyID, act.ActType, act.GazetteDate,
		act.DocumentID, act.SourceURL, act.RawText, act.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ListByCompany lists all acts for a company, newest gazette date first.
func (r *ActRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*CompanyAct, error) {
	query := `
		SELECT id, company_id, act_type, gazette_date, document_id, source_url, raw_text, created_at
		FROM company_acts
		WHERE company_id = $1
		ORDER BY gazette_date DESC, act_type
	`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var acts []*CompanyAct
	for rows.Next() {
		act := &CompanyAct{}
		if err := rows.Scan(
			&act.ID, &act.CompanyID, &act.ActType, &act.GazetteDate,
			&act.DocumentID, &act.SourceURL, &act.RawText, &act.CreatedAt,
		); err != nil {
			return nil, err
		}
		acts = append(acts, act)
	}
	return acts, rows.Err()
}

// Count returns the number of stored acts.
func (r *ActRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM company_acts`).Scan(&n)
	return n, err
}

// OfficerEventRepository handles officer event operations.
type OfficerEventRepository struct {
	db DB
}

// NewOfficerEventRepository creates a new officer event repository.
func NewOfficerEventRepository(db DB) *OfficerEventRepository {
	return &OfficerEventRepository{db: db}
}

// Create inserts an officer event unless its uniqueness key (company, person,
// role, event type, gazette date) already exists. Returns true when inserted.
func (r *OfficerEventRepository) Create(ctx context.Context, event *OfficerEvent) (bool, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()

	query := `
		INSERT INTO officer_events (id, company_id, act_id, person_name, role,
			event_type, gazette_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id, person_name, role, event_type, gazette_date) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		event.ID, event.CompanyID, event.ActID, event.PersonName, event.Role,
		event.EventType, event.GazetteDate, event.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ListByCompany lists all officer events for a company, newest first.
func (r *OfficerEventRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*OfficerEvent, error) {
	query := `
		SELECT id, company_id, act_id, person_name, role, event_type, gazette_date, created_at
		FROM officer_events
		WHERE company_id = $1
		ORDER BY gazette_date DESC, person_name
	`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*OfficerEvent
	for rows.Next() {
		event := &OfficerEvent{}
		if err := rows.Scan(
			&event.ID, &event.CompanyID, &event.ActID, &event.PersonName, &event.Role,
			&event.EventType, &event.GazetteDate, &event.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Count returns the number of stored officer events.
func (r *OfficerEventRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM officer_events`).Scan(&n)
	return n, err
}

// JobRepository handles the per-date ingestion job log.
type JobRepository struct {
	db DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db DB) *JobRepository {
	return &JobRepository{db: db}
}

// GetByDate retrieves the job log row for a gazette date.
func (r *JobRepository) GetByDate(ctx context.Context, gazetteDate string) (*IngestionJob, error) {
	query := `
		SELECT id, gazette_date, status, documents_found, documents_parsed,
			companies_found, companies_created, companies_updated, acts_created,
			error_message, started_at, finished_at, created_at, updated_at
		FROM ingestion_jobs WHERE gazette_date = $1
	`
	job := &IngestionJob{}
	err := r.db.QueryRowContext(ctx, query, gazetteDate).Scan(
		&job.ID, &job.GazetteDate, &job.Status, &job.DocumentsFound, &job.DocumentsParsed,
		&job.CompaniesFound, &job.CompaniesCreated, &job.CompaniesUpdated, &job.ActsCreated,
		&job.ErrorMessage, &job.StartedAt, &job.FinishedAt, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// CreateOrReset returns the job row for a date, creating it if missing or
// resetting counters and status for a re-run.
func (r *JobRepository) CreateOrReset(ctx context.Context, gazetteDate string) (*IngestionJob, error) {
	now := time.Now()

	job, err := r.GetByDate(ctx, gazetteDate)
	if errors.Is(err, ErrNotFound) {
		job = &IngestionJob{
			ID:          uuid.New(),
			GazetteDate: gazetteDate,
			Status:      JobStatusPending,
			StartedAt:   &now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		query := `
			INSERT INTO ingestion_jobs (id, gazette_date, status, documents_found,
				documents_parsed, companies_found, companies_created, companies_updated,
				acts_created, error_message, started_at, finished_at, created_at, updated_at)
			VALUES ($1, $2, $3, 0, 0, 0, 0, 0, 0, NULL, $4, NULL, $5, $6)
		`
		if _, err := r.db.ExecContext(ctx, query,
			job.ID, job.GazetteDate, job.Status, job.StartedAt, job.CreatedAt, job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		return job, nil
	}
	if err != nil {
		return nil, err
	}

	job.Status = JobStatusPending
	job.DocumentsFound = 0
	job.DocumentsParsed = 0
	job.CompaniesFound = 0
	job.CompaniesCreated = 0
	job.CompaniesUpdated = 0
	job.ActsCreated = 0
	job.ErrorMessage = nil
	job.StartedAt = &now
	job.FinishedAt = nil
	if err := r.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Update persists every mutable field of a job row.
func (r *JobRepository) Update(ctx context.Context, job *IngestionJob) error {
	job.UpdatedAt = time.Now()

	query := `
		UPDATE ingestion_jobs SET
			status = $1, documents_found = $2, documents_parsed = $3, companies_found = $4,
			companies_created = $5, companies_updated = $6, acts_created = $7,
			error_message = $8, started_at = $9, finished_at = $10, updated_at = $11
		WHERE id = $12
	`
	result, err := r.db.ExecContext(ctx, query,
		job.Status, job.DocumentsFound, job.DocumentsParsed, job.CompaniesFound,
		job.CompaniesCreated, job.CompaniesUpdated, job.ActsCreated,
		job.ErrorMessage, job.StartedAt, job.FinishedAt, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed sets a job to failed with a truncated error message and closes it.
func (r *JobRepository) MarkFailed(ctx context.Context, job *IngestionJob, cause error) error {
	msg := cause.Error()
	if utf8.RuneCountInString(msg) > errorMessageLimit {
		// Truncate on a rune boundary; messages quote source text.
		msg = string([]rune(msg)[:errorMessageLimit])
	}
	now := time.Now()
	job.Status = JobStatusFailed
	job.ErrorMessage = &msg
	job.FinishedAt = &now
	return r.Update(ctx, job)
}

// MarkCompleted sets a job to completed and closes it.
func (r *JobRepository) MarkCompleted(ctx context.Context, job *IngestionJob) error {
	now := time.Now()
	job.Status = JobStatusCompleted
	job.ErrorMessage = nil
	job.FinishedAt = &now
	return r.Update(ctx, job)
}

// ListRecent lists job rows, newest gazette date first.
func (r *JobRepository) ListRecent(ctx context.Context, limit int) ([]*IngestionJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, gazette_date, status, documents_found, documents_parsed,
			companies_found, companies_created, companies_updated, acts_created,
			error_message, started_at, finished_at, created_at, updated_at
		FROM ingestion_jobs
		ORDER BY gazette_date DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*IngestionJob
	for rows.Next() {
		job := &IngestionJob{}
		if err := rows.Scan(
			&job.ID, &job.GazetteDate, &job.Status, &job.DocumentsFound, &job.DocumentsParsed,
			&job.CompaniesFound, &job.CompaniesCreated, &job.CompaniesUpdated, &job.ActsCreated,
			&job.ErrorMessage, &job.StartedAt, &job.FinishedAt, &job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ListByDateRange lists job rows whose gazette date falls inside the
// inclusive range, oldest first.
func (r *JobRepository) ListByDateRange(ctx context.Context, from, to string) ([]*IngestionJob, error) {
	query := `
		SELECT id, gazette_date, status, documents_found, documents_parsed,
			companies_found, companies_created, companies_updated, acts_created,
			error_message, started_at, finished_at, created_at, updated_at
		FROM ingestion_jobs
		WHERE gazette_date >= $1 AND gazette_date <= $2
		ORDER BY gazette_date
	`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*IngestionJob
	for rows.Next() {
		job := &IngestionJob{}
		if err := rows.Scan(
			&job.ID, &job.GazetteDate, &job.Status, &job.DocumentsFound, &job.DocumentsParsed,
			&job.CompaniesFound, &job.CompaniesCreated, &job.CompaniesUpdated, &job.ActsCreated,
			&job.ErrorMessage, &job.StartedAt, &job.FinishedAt, &job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Repositories bundles all repositories over one connection or transaction.
type Repositories struct {
	Companies     *CompanyRepository
	Acts          *ActRepository
	OfficerEvents *OfficerEventRepository
	Jobs          *JobRepository
}

// NewRepositories creates all repositories with the given database connection.
func NewRepositories(db DB) *Repositories {
	return &Repositories{
		Companies:     NewCompanyRepository(db),
		Acts:          NewActRepository(db),
		OfficerEvents: NewOfficerEventRepository(db),
		Jobs:          NewJobRepository(db),
	}
}
