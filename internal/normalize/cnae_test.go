package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferCNAE_ExplicitMention(t *testing.T) {
	cases := []struct {
		purpose string
		want    string
	}{
		{"dedicada a la actividad de restauración. CNAE: 5610.", "56"},
		{"CNAE 2009: 6202 consultoría informática", "62"},
		{"CNAE 68.10 alquiler de inmuebles", "68"},
		{"cnae de la actividad principal: 4321", "43"},
	}
	for _, tc := range cases {
		division, inferred, ok := InferCNAE(tc.purpose)
		require.True(t, ok, "purpose %q", tc.purpose)
		assert.Equal(t, tc.want, division, "purpose %q", tc.purpose)
		assert.False(t, inferred, "explicit code is not an inference: %q", tc.purpose)
	}
}

func TestInferCNAE_BareCode(t *testing.T) {
	division, inferred, ok := InferCNAE("actividades reguladas bajo el epígrafe 6831 del registro")
	require.True(t, ok)
	assert.Equal(t, "68", division)
	assert.False(t, inferred)
}

func TestInferCNAE_SkipsYears(t *testing.T) {
	// 19xx/20xx figures are years, not activity codes; classification falls
	// through to the keyword table.
	division, inferred, ok := InferCNAE("constituida en 2024 para la formación de adultos")
	require.True(t, ok)
	assert.Equal(t, "85", division)
	assert.True(t, inferred)
}

func TestInferCNAE_Keywords(t *testing.T) {
	cases := []struct {
		purpose string
		want    string
	}{
		{"Comercio al por menor de ropa y complementos", "47"},
		{"Desarrollo de software y programación de aplicaciones informáticas", "62"},
		{"GESTIÓN INMOBILIARIA Y ARRENDAMIENTO", "68"},
		{"Transporte de mercancías por carretera", "49"},
	}
	for _, tc := range cases {
		division, inferred, ok := InferCNAE(tc.purpose)
		require.True(t, ok, "purpose %q", tc.purpose)
		assert.Equal(t, tc.want, division, "purpose %q", tc.purpose)
		assert.True(t, inferred, "purpose %q", tc.purpose)
	}
}

func TestInferCNAE_TieKeepsFirstDivision(t *testing.T) {
	// One keyword each for divisions 41 and 47; the earlier division wins.
	division, _, ok := InferCNAE("construcción y tienda")
	require.True(t, ok)
	assert.Equal(t, "41", division)
}

func TestInferCNAE_NoMatch(t *testing.T) {
	_, _, ok := InferCNAE("otros negocios no clasificados")
	assert.False(t, ok)

	_, _, ok = InferCNAE("")
	assert.False(t, ok)

	// A five-digit run after CNAE is not a division code.
	_, _, ok = InferCNAE("CNAE 123456")
	assert.False(t, ok)
}
