package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Peluquería Ñoño, S.L.", "PELUQUERIA NONO, S.L."},
		{"  DOBLE   ESPACIO  SL ", "DOBLE ESPACIO SL"},
		{"construcciones jardín del sur sl", "CONSTRUCCIONES JARDIN DEL SUR SL"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Name(tc.raw), "name %q", tc.raw)
	}
}

func TestPersonName(t *testing.T) {
	assert.Equal(t, "GARCIA LOPEZ JUAN", PersonName("Garcia  Lopez   Juan"))
	// Unlike company names, diacritics survive: people are displayed, not
	// identity-matched.
	assert.Equal(t, "MUÑOZ IBÁÑEZ MARÍA", PersonName("Muñoz Ibáñez María"))
}

func TestStripAccents(t *testing.T) {
	assert.Equal(t, "Guipuzcoa", StripAccents("Guipúzcoa"))
	assert.Equal(t, "ano", StripAccents("año"))
	assert.Equal(t, "sin acentos", StripAccents("sin acentos"))
}

func TestLegalForm(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"EXAMPLE COMPANY SL", "SL"},
		{"EJEMPLO S.L.", "SL"},
		{"EJEMPLO SLU", "SLU"},
		{"EJEMPLO S.L.U.", "SLU"},
		{"BANCO EJEMPLO SA", "SA"},
		{"EJEMPLO S.A.U.", "SAU"},
		{"EJEMPLO SOCIEDAD LIMITADA", "SL"},
		{"EJEMPLO SOCIEDAD ANÓNIMA", "SA"},
		{"COOPERATIVA DEL CAMPO SCOOP", "SCOOP"},
		{"COOPERATIVA DEL CAMPO S.COOP.", "SCOOP"},
		{"HERMANOS PEREZ CB", "CB"},
		{"EJEMPLO COMUNIDAD DE BIENES", "CB"},
	}
	for _, tc := range cases {
		form, ok := LegalForm(tc.name)
		require.True(t, ok, "name %q", tc.name)
		assert.Equal(t, tc.want, form, "name %q", tc.name)
	}

	_, ok := LegalForm("JUAN GARCIA LOPEZ")
	assert.False(t, ok)
}

func TestLegalForm_LongerFormWins(t *testing.T) {
	// SLU carries an SL prefix and SAU an SA prefix; the more specific form
	// must win.
	form, ok := LegalForm("EJEMPLO SLU")
	require.True(t, ok)
	assert.Equal(t, "SLU", form)

	form, ok = LegalForm("EJEMPLO SAU")
	require.True(t, ok)
	assert.Equal(t, "SAU", form)
}

func TestProvinceFromAddress(t *testing.T) {
	raw, ok := ProvinceFromAddress("AVDA DE LA ALBUFERA 15 2 B, MADRID (MADRID)")
	require.True(t, ok)
	assert.Equal(t, "MADRID", raw)

	raw, ok = ProvinceFromAddress("CALLE SOL 3, Alcobendas (MADRID).")
	require.True(t, ok)
	assert.Equal(t, "MADRID", raw)

	_, ok = ProvinceFromAddress("CALLE SIN PROVINCIA 5")
	assert.False(t, ok)
}

func TestLocalityFromAddress(t *testing.T) {
	locality, ok := LocalityFromAddress("CALLE SOL 3, Alcobendas (MADRID).")
	require.True(t, ok)
	assert.Equal(t, "Alcobendas", locality)

	// All-caps localities are indistinguishable from the rest of the
	// address line and are not extracted.
	_, ok = LocalityFromAddress("CALLE X 1, BILBAO (BIZKAIA)")
	assert.False(t, ok)
}

func TestParseCivilDate(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"15.01.25", "2025-01-15"},
		{"15/01/2025", "2025-01-15"},
		{"1.3.24", "2024-03-01"},
		{"01.02.75", "1975-02-01"},
		{"28.02.2024", "2024-02-28"},
	}
	for _, tc := range cases {
		iso, ok := ParseCivilDate(tc.raw)
		require.True(t, ok, "date %q", tc.raw)
		assert.Equal(t, tc.want, iso, "date %q", tc.raw)
	}

	invalid := []string{"31.02.24", "15.13.24", "sin fecha", "15.01", ""}
	for _, raw := range invalid {
		_, ok := ParseCivilDate(raw)
		assert.False(t, ok, "date %q", raw)
	}
}

func TestCanonicalProvince(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"MADRID", "Madrid"},
		{"madrid", "Madrid"},
		{"BIZKAIA", "Vizcaya"},
		{"GIPUZKOA", "Guipúzcoa"},
		{"GERONA", "Girona"},
		{"LERIDA", "Lleida"},
		{" La Coruña ", "A Coruña"},
		{"S.C. Tenerife", "Santa Cruz de Tenerife"},
		{"Illes Balears", "Baleares"},
		// PDF extraction drops accents; the stripped spellings still match.
		{"MALAGA", "Málaga"},
		{"CADIZ", "Cádiz"},
		{"LA CORUNA", "A Coruña"},
	}
	for _, tc := range cases {
		name, ok := CanonicalProvince(tc.raw)
		require.True(t, ok, "province %q", tc.raw)
		assert.Equal(t, tc.want, name, "province %q", tc.raw)
	}

	_, ok := CanonicalProvince("EXTRANJERO")
	assert.False(t, ok)
}
