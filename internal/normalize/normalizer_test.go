package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registralia/borme-engine/internal/extract"
	"github.com/registralia/borme-engine/internal/storage"
)

func TestCompany_IncorporationBlock(t *testing.T) {
	text := `1.- EXAMPLE COMPANY SL.
Incorporación. Capital: 3.000,00 Euros. Domicilio: Calle Mayor 1 (MADRID). Objeto social: Comercio al por menor.
`
	records := extract.NewExtractor(extract.Config{}, nil).Parse(text)
	require.Len(t, records, 1)

	company := Company(&records[0], "MADRID", "2024-03-01")

	assert.Equal(t, "EXAMPLE COMPANY SL", company.Name)
	assert.Equal(t, "EXAMPLE COMPANY SL", company.NormalizedName)
	require.NotNil(t, company.LegalForm)
	assert.Equal(t, "SL", *company.LegalForm)
	require.NotNil(t, company.Province)
	assert.Equal(t, "Madrid", *company.Province)
	require.NotNil(t, company.Address)
	assert.Equal(t, "Calle Mayor 1 (MADRID)", *company.Address)
	require.NotNil(t, company.Purpose)
	assert.Equal(t, "Comercio al por menor", *company.Purpose)
	require.NotNil(t, company.CNAECode)
	assert.Equal(t, "47", *company.CNAECode)
	assert.True(t, company.CNAEInferred)

	require.True(t, company.CapitalEUR.Valid)
	assert.Equal(t, "3000.00", company.CapitalEUR.Decimal.StringFixed(2))

	assert.Equal(t, storage.CompanyStatusActive, company.Status)
	require.NotNil(t, company.FirstSeenDate)
	assert.Equal(t, "2024-03-01", *company.FirstSeenDate)
	require.NotNil(t, company.LastSeenDate)
	assert.Equal(t, "2024-03-01", *company.LastSeenDate)
}

func TestCompany_SingleLineBlock(t *testing.T) {
	text := `1.- EXAMPLE COMPANY SL. Incorporación. Capital: 3.000,00 Euros. Domicilio: Calle Mayor 1 (MADRID). Objeto social: Comercio al por menor.`

	records := extract.NewExtractor(extract.Config{}, nil).Parse(text)
	require.Len(t, records, 1)

	company := Company(&records[0], "MADRID", "2024-03-01")

	assert.Equal(t, "EXAMPLE COMPANY SL", company.Name)
	require.NotNil(t, company.Province)
	assert.Equal(t, "Madrid", *company.Province)
	require.True(t, company.CapitalEUR.Valid)
	assert.Equal(t, "3000.00", company.CapitalEUR.Decimal.StringFixed(2))
	assert.Equal(t, storage.CompanyStatusActive, company.Status)

	require.Len(t, records[0].Acts, 1)
	assert.Equal(t, storage.ActTypeIncorporation, records[0].Acts[0].Type)
}

func TestCompany_PesetasConvertedAtFixedRate(t *testing.T) {
	rec := extract.CompanyRecord{
		Name:        "SOCIEDAD ANTIGUA SL",
		Capital:     decimal.NullDecimal{Decimal: decimal.NewFromInt(100000), Valid: true},
		CapitalUnit: extract.CurrencyPTS,
	}

	company := Company(&rec, "MADRID", "2024-03-01")

	require.True(t, company.CapitalEUR.Valid)
	assert.Equal(t, "601.01", company.CapitalEUR.Decimal.StringFixed(2))
}

func TestCompany_EuroCapitalUnchanged(t *testing.T) {
	rec := extract.CompanyRecord{
		Name:        "EJEMPLO SL",
		Capital:     decimal.NullDecimal{Decimal: decimal.RequireFromString("3000.00"), Valid: true},
		CapitalUnit: extract.CurrencyEUR,
	}

	company := Company(&rec, "MADRID", "2024-03-01")

	require.True(t, company.CapitalEUR.Valid)
	assert.Equal(t, "3000.00", company.CapitalEUR.Decimal.StringFixed(2))
}

func TestCompany_ProvincePriority(t *testing.T) {
	// The address parenthetical wins over the section label.
	rec := extract.CompanyRecord{
		Name:    "NAVIERA EJEMPLO SL",
		Address: "MUELLE UNO 4, Bilbao (BIZKAIA)",
	}
	company := Company(&rec, "MADRID", "2024-03-01")
	require.NotNil(t, company.Province)
	assert.Equal(t, "Vizcaya", *company.Province)
	require.NotNil(t, company.Locality)
	assert.Equal(t, "Bilbao", *company.Locality)

	// Without an address the section label is canonicalized.
	rec = extract.CompanyRecord{Name: "EJEMPLO SL"}
	company = Company(&rec, "GERONA", "2024-03-01")
	require.NotNil(t, company.Province)
	assert.Equal(t, "Girona", *company.Province)

	// An unrecognized label is kept raw rather than dropped.
	company = Company(&rec, "EXTRANJERO", "2024-03-01")
	require.NotNil(t, company.Province)
	assert.Equal(t, "EXTRANJERO", *company.Province)
}

func TestCompany_NameTrimmedAndNormalized(t *testing.T) {
	rec := extract.CompanyRecord{Name: "Peluquería Ñoño, S.L. "}

	company := Company(&rec, "MADRID", "2024-03-01")

	assert.Equal(t, "Peluquería Ñoño, S.L", company.Name)
	assert.Equal(t, "PELUQUERIA NONO, S.L", company.NormalizedName)
	require.NotNil(t, company.LegalForm)
	assert.Equal(t, "SL", *company.LegalForm)
}

func TestCompany_StartDateParsed(t *testing.T) {
	rec := extract.CompanyRecord{Name: "EJEMPLO SL", StartDate: "1.03.24"}

	company := Company(&rec, "MADRID", "2024-03-15")

	require.NotNil(t, company.IncorporationDate)
	assert.Equal(t, "2024-03-01", *company.IncorporationDate)
}

func TestCompany_UnparseableStartDateDropped(t *testing.T) {
	rec := extract.CompanyRecord{Name: "EJEMPLO SL", StartDate: "fecha ilegible"}

	company := Company(&rec, "MADRID", "2024-03-15")

	assert.Nil(t, company.IncorporationDate)
}

func TestStatusFromActs(t *testing.T) {
	cases := []struct {
		name string
		acts []extract.Act
		want storage.CompanyStatus
	}{
		{
			name: "no acts",
			acts: nil,
			want: storage.CompanyStatusActive,
		},
		{
			name: "incorporation only",
			acts: []extract.Act{{Type: storage.ActTypeIncorporation}},
			want: storage.CompanyStatusActive,
		},
		{
			name: "dissolution",
			acts: []extract.Act{{Type: storage.ActTypeDissolution}},
			want: storage.CompanyStatusDissolved,
		},
		{
			name: "dissolution then liquidation",
			acts: []extract.Act{
				{Type: storage.ActTypeDissolution},
				{Type: storage.ActTypeLiquidation},
			},
			want: storage.CompanyStatusInLiquidation,
		},
		{
			name: "liquidation listed before dissolution",
			acts: []extract.Act{
				{Type: storage.ActTypeLiquidation},
				{Type: storage.ActTypeDissolution},
			},
			want: storage.CompanyStatusInLiquidation,
		},
		{
			name: "extinction wins over everything",
			acts: []extract.Act{
				{Type: storage.ActTypeDissolution},
				{Type: storage.ActTypeExtinction},
				{Type: storage.ActTypeLiquidation},
			},
			want: storage.CompanyStatusExtinguished,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusFromActs(tc.acts))
		})
	}
}
