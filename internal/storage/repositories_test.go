package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(OpenConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "storage.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = NewMigrator(db, "sqlite").Run(context.Background())
	require.NoError(t, err)
	return db
}

func ptr(s string) *string {
	return &s
}

func sampleCompany(name, normalized, province string) *Company {
	return &Company{
		Name:              name,
		NormalizedName:    normalized,
		LegalForm:         ptr("SL"),
		Province:          ptr(province),
		Locality:          ptr("Madrid"),
		Address:           ptr("CALLE MAYOR 1 (MADRID)"),
		Purpose:           ptr("Comercio al por menor de equipos informáticos"),
		CNAECode:          ptr("47"),
		CNAEInferred:      true,
		CapitalEUR:        decimal.NewNullDecimal(decimal.RequireFromString("3000.00")),
		IncorporationDate: ptr("2024-03-01"),
		Status:            CompanyStatusActive,
		RegistryData:      ptr("T 2595, F 113, S 8, H M 46898, I/A 1 (1.03.24)"),
		FirstSeenDate:     ptr("2024-03-01"),
		LastSeenDate:      ptr("2024-03-01"),
	}
}

func TestCompanyRepository_CreateAndGetByIdentity(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewCompanyRepository(db)

	company := sampleCompany("EJEMPLO DIGITAL SL.", "EJEMPLO DIGITAL", "Madrid")
	require.NoError(t, repo.Create(ctx, company))
	require.NotEqual(t, company.ID.String(), "00000000-0000-0000-0000-000000000000")

	got, err := repo.GetByIdentity(ctx, "EJEMPLO DIGITAL", "Madrid")
	require.NoError(t, err)
	assert.Equal(t, company.ID, got.ID)
	assert.Equal(t, "EJEMPLO DIGITAL SL.", got.Name)
	assert.Equal(t, "SL", *got.LegalForm)
	assert.Equal(t, "CALLE MAYOR 1 (MADRID)", *got.Address)
	assert.Equal(t, "47", *got.CNAECode)
	assert.True(t, got.CNAEInferred)
	require.True(t, got.CapitalEUR.Valid)
	assert.True(t, got.CapitalEUR.Decimal.Equal(decimal.RequireFromString("3000.00")))
	assert.Equal(t, CompanyStatusActive, got.Status)
	assert.Equal(t, "2024-03-01", *got.FirstSeenDate)

	byID, err := repo.GetByID(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, got.NormalizedName, byID.NormalizedName)

	// Same normalized name in a different province is a different company.
	_, err = repo.GetByIdentity(ctx, "EJEMPLO DIGITAL", "Barcelona")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompanyRepository_Update(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewCompanyRepository(db)

	company := sampleCompany("EJEMPLO DIGITAL SL.", "EJEMPLO DIGITAL", "Madrid")
	require.NoError(t, repo.Create(ctx, company))

	company.Status = CompanyStatusInLiquidation
	company.CapitalEUR = decimal.NewNullDecimal(decimal.RequireFromString("12000.00"))
	company.LastSeenDate = ptr("2024-05-10")
	require.NoError(t, repo.Update(ctx, company))

	got, err := repo.GetByID(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, CompanyStatusInLiquidation, got.Status)
	assert.True(t, got.CapitalEUR.Decimal.Equal(decimal.RequireFromString("12000.00")))
	assert.Equal(t, "2024-05-10", *got.LastSeenDate)
	// Identity fields are immutable through Update.
	assert.Equal(t, "EJEMPLO DIGITAL", got.NormalizedName)

	missing := sampleCompany("OTRA SL", "OTRA", "Sevilla")
	missing.ID = company.ID
	missing.ID[0] ^= 0xff
	assert.ErrorIs(t, repo.Update(ctx, missing), ErrNotFound)
}

func TestCompanyRepository_DeleteCascades(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repos := NewRepositories(db)

	company := sampleCompany("EJEMPLO DIGITAL SL.", "EJEMPLO DIGITAL", "Madrid")
	require.NoError(t, repos.Companies.Create(ctx, company))

	act := &CompanyAct{
		CompanyID:   company.ID,
		ActType:     ActTypeIncorporation,
		GazetteDate: "2024-03-01",
		DocumentID:  "BORME-A-2024-44-28",
		RawText:     ptr("Constitución."),
	}
	created, err := repos.Acts.Create(ctx, act)
	require.NoError(t, err)
	require.True(t, created)

	created, err = repos.OfficerEvents.Create(ctx, &OfficerEvent{
		CompanyID:   company.ID,
		ActID:       &act.ID,
		PersonName:  "GARCIA LOPEZ JUAN",
		Role:        "Adm. Unico",
		EventType:   OfficerEventAppointment,
		GazetteDate: "2024-03-01",
	})
	require.NoError(t, err)
	require.True(t, created)

	require.NoError(t, repos.Companies.Delete(ctx, company.ID))

	_, err = repos.Companies.GetByID(ctx, company.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	acts, err := repos.Acts.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, acts)
	events, err := repos.OfficerEvents.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, events)

	assert.ErrorIs(t, repos.Companies.Delete(ctx, company.ID), ErrNotFound)
}

func TestCompanyRepository_ListFalseHeaders(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewCompanyRepository(db)

	require.NoError(t, repo.Create(ctx, sampleCompany("EJEMPLO DIGITAL SL.", "EJEMPLO DIGITAL", "Madrid")))
	require.NoError(t, repo.Create(ctx, sampleCompany("(MADRID).", "(MADRID)", "Madrid")))
	require.NoError(t, repo.Create(ctx, sampleCompany("(BARCELONA)", "(BARCELONA)", "Barcelona")))

	headers, err := repo.ListFalseHeaders(ctx)
	require.NoError(t, err)
	require.Len(t, headers, 2)
	assert.Equal(t, "(BARCELONA)", headers[0].Name)
	assert.Equal(t, "(MADRID).", headers[1].Name)
}

func TestActRepository_CreateDeduplicates(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repos := NewRepositories(db)

	company := sampleCompany("EJEMPLO DIGITAL SL.", "EJEMPLO DIGITAL", "Madrid")
	require.NoError(t, repos.Companies.Create(ctx, company))

	act := func(actType ActType, docID, date string) *CompanyAct {
		return &CompanyAct{
			CompanyID:   company.ID,
			ActType:     actType,
			GazetteDate: date,
			DocumentID:  docID,
		}
	}

	created, err := repos.Acts.Create(ctx, act(ActTypeIncorporation, "BORME-A-2024-44-28", "2024-03-01"))
	require.NoError(t, err)
	assert.True(t, created)

	// Same company, document and act type: a re-parse, not a new act.
	created, err = repos.Acts.Create(ctx, act(ActTypeIncorporation, "BORME-A-2024-44-28", "2024-03-01"))
	require.NoError(t, err)
	assert.False(t, created)

	created, err = repos.Acts.Create(ctx, act(ActTypeAppointments, "BORME-A-2024-44-28", "2024-03-01"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repos.Acts.Create(ctx, act(ActTypeIncorporation, "BORME-A-2024-52-28", "2024-03-12"))
	require.NoError(t, err)
	assert.True(t, created)

	acts, err := repos.Acts.ListByCompany(ctx, company.ID)
	require.NoError(t, err)
	require.Len(t, acts, 3)
	assert.Equal(t, "2024-03-12", acts[0].GazetteDate)
}

func TestOfficerEventRepository_CreateDeduplicates(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repos := NewRepositories(db)

	company := sampleCompany("EJEMPLO DIGITAL SL.", "EJEMPLO DIGITAL", "Madrid")
	require.NoError(t, repos.Companies.Create(ctx, company))

	event := &OfficerEvent{
		CompanyID:   company.ID,
		PersonName:  "GARCIA LOPEZ JUAN",
		Role:        "Adm. Unico",
		EventType:   OfficerEventAppointment,
		GazetteDate: "2024-03-01",
	}
	created, err := repos.OfficerEvents.Create(ctx, event)
	require.NoError(t, err)
	assert.True(t, created)

	dup := *event
	created, err = repos.OfficerEvents.Create(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, created)

	other := *event
	other.PersonName = "MUÑOZ IBÁÑEZ MARÍA"
	created, err = repos.OfficerEvents.Create(ctx, &other)
	require.NoError(t, err)
	assert.True(t, created)

	events, err := repos.OfficerEvents.ListByCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestJobRepository_CreateOrReset(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewJobRepository(db)

	job, err := repo.CreateOrReset(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, job.Status)
	require.NotNil(t, job.StartedAt)
	assert.Nil(t, job.FinishedAt)

	job.Status = JobStatusStoring
	job.DocumentsFound = 12
	job.CompaniesCreated = 5
	require.NoError(t, repo.Update(ctx, job))
	require.NoError(t, repo.MarkCompleted(ctx, job))

	reset, err := repo.CreateOrReset(ctx, "2024-03-01")
	require.NoError(t, err)
	// A re-run reuses the row and clears the previous outcome.
	assert.Equal(t, job.ID, reset.ID)
	assert.Equal(t, JobStatusPending, reset.Status)
	assert.Zero(t, reset.DocumentsFound)
	assert.Zero(t, reset.CompaniesCreated)
	assert.Nil(t, reset.ErrorMessage)
	assert.Nil(t, reset.FinishedAt)
}

func TestJobRepository_MarkFailedTruncatesMessage(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewJobRepository(db)

	job, err := repo.CreateOrReset(ctx, "2024-03-01")
	require.NoError(t, err)

	cause := strings.Repeat("ñ", 600)
	require.NoError(t, repo.MarkFailed(ctx, job, errors.New(cause)))

	got, err := repo.GetByDate(ctx, "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, 500, utf8.RuneCountInString(*got.ErrorMessage))
	assert.True(t, utf8.ValidString(*got.ErrorMessage))
	require.NotNil(t, got.FinishedAt)
}

func TestJobRepository_ListRecentAndRange(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	repo := NewJobRepository(db)

	dates := []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04", "2024-03-05"}
	for _, date := range dates {
		job, err := repo.CreateOrReset(ctx, date)
		require.NoError(t, err)
		require.NoError(t, repo.MarkCompleted(ctx, job))
	}

	recent, err := repo.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "2024-03-05", recent[0].GazetteDate)
	assert.Equal(t, "2024-03-03", recent[2].GazetteDate)

	window, err := repo.ListByDateRange(ctx, "2024-03-02", "2024-03-04")
	require.NoError(t, err)
	require.Len(t, window, 3)
	assert.Equal(t, "2024-03-02", window[0].GazetteDate)
	assert.Equal(t, "2024-03-04", window[2].GazetteDate)

	empty, err := repo.ListByDateRange(ctx, "2025-01-01", "2025-01-31")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
