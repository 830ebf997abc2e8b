package normalize

import "strings"

// canonicalProvinces lists the canonical province names used across the
// registry: the fifty provinces plus the two autonomous cities.
var canonicalProvinces = []string{
	"Álava", "Albacete", "Alicante", "Almería", "Asturias", "Ávila",
	"Badajoz", "Baleares", "Barcelona", "Burgos", "Cáceres", "Cádiz",
	"Cantabria", "Castellón", "Ceuta", "Ciudad Real", "Córdoba", "A Coruña",
	"Cuenca", "Girona", "Granada", "Guadalajara", "Guipúzcoa", "Huelva",
	"Huesca", "Jaén", "León", "Lleida", "La Rioja", "Lugo", "Madrid",
	"Málaga", "Melilla", "Murcia", "Navarra", "Ourense", "Palencia",
	"Las Palmas", "Pontevedra", "Salamanca", "Santa Cruz de Tenerife",
	"Segovia", "Sevilla", "Soria", "Tarragona", "Teruel", "Toledo",
	"Valencia", "Valladolid", "Vizcaya", "Zamora", "Zaragoza",
}

// provinceVariants maps alternate spellings seen in gazette section headers
// and address parentheticals to their canonical names.
var provinceVariants = map[string]string{
	"ALAVA":          "Álava",
	"ARABA":          "Álava",
	"BIZKAIA":        "Vizcaya",
	"GIPUZKOA":       "Guipúzcoa",
	"GUIPUZCOA":      "Guipúzcoa",
	"ILLES BALEARS":  "Baleares",
	"ISLAS BALEARES": "Baleares",
	"GERONA":         "Girona",
	"LERIDA":         "Lleida",
	"ORENSE":         "Ourense",
	"LA CORUÑA":      "A Coruña",
	"S.C. TENERIFE":  "Santa Cruz de Tenerife",
	"SC TENERIFE":    "Santa Cruz de Tenerife",
}

var provinceLookup = buildProvinceLookup()

func buildProvinceLookup() map[string]string {
	m := make(map[string]string, 2*len(canonicalProvinces)+len(provinceVariants))
	for _, name := range canonicalProvinces {
		m[strings.ToUpper(name)] = name
	}
	for variant, name := range provinceVariants {
		m[variant] = name
	}
	// PDF text extraction often loses accents; index the stripped spellings
	// too without shadowing the exact ones.
	stripped := make(map[string]string, len(m))
	for key, name := range m {
		stripped[StripAccents(key)] = name
	}
	for key, name := range stripped {
		if _, exists := m[key]; !exists {
			m[key] = name
		}
	}
	return m
}

// CanonicalProvince matches a raw province string against the canonical
// table, covering known regional spelling variants and accent loss. ok is
// false when the input is not a recognized province.
func CanonicalProvince(raw string) (string, bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if name, ok := provinceLookup[key]; ok {
		return name, true
	}
	name, ok := provinceLookup[StripAccents(key)]
	return name, ok
}
