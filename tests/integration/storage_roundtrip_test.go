package integration

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registralia/borme-engine/internal/storage"
)

// TestPostgresStorageRoundTrip applies the embedded migrations against a real
// Postgres and pushes a company with its acts, officer events and job rows
// through every repository.
func TestPostgresStorageRoundTrip(t *testing.T) {
	skipWithoutDocker(t)

	dsn := startPostgres(t)
	db, err := storage.Open(storage.OpenConfig{
		Driver:          "postgres",
		DSN:             dsn,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	applied, err := storage.NewMigrator(db, "postgres").Run(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"0001_init.sql"}, applied)

	repos := storage.NewRepositories(db)

	legalForm := "SL"
	province := "Madrid"
	firstSeen := "2024-03-01"
	company := &storage.Company{
		Name:           "INTEGRACION IBERICA SL.",
		NormalizedName: "INTEGRACION IBERICA",
		LegalForm:      &legalForm,
		Province:       &province,
		CapitalEUR:     decimal.NewNullDecimal(decimal.RequireFromString("3000.00")),
		Status:         storage.CompanyStatusActive,
		FirstSeenDate:  &firstSeen,
		LastSeenDate:   &firstSeen,
	}
	require.NoError(t, repos.Companies.Create(ctx, company))

	got, err := repos.Companies.GetByIdentity(ctx, "INTEGRACION IBERICA", "Madrid")
	require.NoError(t, err)
	assert.Equal(t, company.ID, got.ID)
	require.True(t, got.CapitalEUR.Valid)
	assert.True(t, got.CapitalEUR.Decimal.Equal(decimal.RequireFromString("3000.00")))

	act := &storage.CompanyAct{
		CompanyID:   company.ID,
		ActType:     storage.ActTypeIncorporation,
		GazetteDate: "2024-03-01",
		DocumentID:  "BORME-A-2024-44-28",
	}
	created, err := repos.Acts.Create(ctx, act)
	require.NoError(t, err)
	assert.True(t, created)

	// Postgres enforces the same dedup key the sqlite schema does.
	created, err = repos.Acts.Create(ctx, &storage.CompanyAct{
		CompanyID:   company.ID,
		ActType:     storage.ActTypeIncorporation,
		GazetteDate: "2024-03-01",
		DocumentID:  "BORME-A-2024-44-28",
	})
	require.NoError(t, err)
	assert.False(t, created)

	created, err = repos.OfficerEvents.Create(ctx, &storage.OfficerEvent{
		CompanyID:   company.ID,
		ActID:       &act.ID,
		PersonName:  "GARCIA LOPEZ JUAN",
		Role:        "Adm. Unico",
		EventType:   storage.OfficerEventAppointment,
		GazetteDate: "2024-03-01",
	})
	require.NoError(t, err)
	assert.True(t, created)

	job, err := repos.Jobs.CreateOrReset(ctx, "2024-03-01")
	require.NoError(t, err)
	job.DocumentsFound = 1
	job.DocumentsParsed = 1
	job.CompaniesFound = 1
	job.CompaniesCreated = 1
	job.ActsCreated = 1
	require.NoError(t, repos.Jobs.MarkCompleted(ctx, job))

	window, err := repos.Jobs.ListByDateRange(ctx, "2024-03-01", "2024-03-01")
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, storage.JobStatusCompleted, window[0].Status)
	assert.Equal(t, 1, window[0].ActsCreated)

	// Deleting the company removes its dependent rows too.
	require.NoError(t, repos.Companies.Delete(ctx, company.ID))
	acts, err := repos.Acts.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, acts)
	events, err := repos.OfficerEvents.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, events)
}
