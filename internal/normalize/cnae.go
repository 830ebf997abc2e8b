package normalize

import (
	"regexp"
	"strings"
)

// cnaeKeywords maps purpose-text keywords to two-digit activity divisions
// for best-effort classification. Order matters: on a tied keyword score the
// earlier division wins.
var cnaeKeywords = []struct {
	division string
	keywords []string
}{
	{"01", []string{"agricultura", "ganadería", "cultivo", "explotación agrícola"}},
	{"10", []string{"alimentación", "productos alimenticios", "elaboración de alimentos"}},
	{"41", []string{"construcción de edificios", "promoción inmobiliaria", "construcción"}},
	{"43", []string{"reformas", "instalaciones eléctricas", "fontanería", "pintura"}},
	{"45", []string{"venta de vehículos", "taller mecánico", "reparación de vehículos"}},
	{"46", []string{"comercio al por mayor", "distribución", "importación", "exportación"}},
	{"47", []string{"comercio al por menor", "venta al público", "tienda"}},
	{"49", []string{"transporte de mercancías", "transporte de viajeros", "mudanzas"}},
	{"55", []string{"hotel", "alojamiento", "hostal", "apartamento turístico"}},
	{"56", []string{"restaurante", "bar", "cafetería", "catering", "comidas"}},
	{"62", []string{"desarrollo de software", "programación", "aplicaciones informáticas", "consultoría informática", "tecnología de la información"}},
	{"63", []string{"procesamiento de datos", "hosting", "portales web"}},
	{"64", []string{"servicios financieros", "intermediación financiera"}},
	{"65", []string{"seguros", "reaseguros", "correduría de seguros"}},
	{"68", []string{"inmobiliaria", "compraventa de inmuebles", "alquiler de inmuebles", "gestión inmobiliaria", "arrendamiento"}},
	{"69", []string{"asesoría fiscal", "asesoría contable", "asesoría jurídica", "abogados", "contabilidad", "auditoría"}},
	{"70", []string{"consultoría de gestión", "consultoría empresarial", "asesoramiento empresarial"}},
	{"71", []string{"arquitectura", "ingeniería", "servicios técnicos"}},
	{"72", []string{"investigación", "desarrollo experimental", "I+D"}},
	{"73", []string{"publicidad", "marketing", "estudios de mercado", "relaciones públicas"}},
	{"74", []string{"diseño", "fotografía", "traducción"}},
	{"77", []string{"alquiler de maquinaria", "alquiler de vehículos", "leasing"}},
	{"79", []string{"agencia de viajes", "turismo", "operador turístico"}},
	{"82", []string{"servicios administrativos", "centro de llamadas", "call center"}},
	{"85", []string{"educación", "formación", "enseñanza", "academia"}},
	{"86", []string{"clínica", "consulta médica", "odontología", "fisioterapia", "medicina"}},
	{"93", []string{"gimnasio", "deporte", "actividades deportivas", "fitness"}},
	{"96", []string{"peluquería", "estética", "lavandería", "servicios personales"}},
}

var (
	cnaeMentionRe   = regexp.MustCompile(`(?i)CNAE`)
	cnaeYearRe      = regexp.MustCompile(`^[\s:-]*20\d{2}\s*\)?`)
	cnaeActivityRe  = regexp.MustCompile(`(?i)^[\s:-]*(?:actividad\s+principal|de\s+la\s+actividad\s+princ(?:ipal)?)\s*:?\s*`)
	cnaeSeparatorRe = regexp.MustCompile(`^[\s:-]+`)
	cnaeCodeRe      = regexp.MustCompile(`^(\d{2})(\d*)`)
	bareCodeRe      = regexp.MustCompile(`\b(\d{4})\b`)
)

// InferCNAE guesses the two-digit activity division for a business-purpose
// text. Preference order: an explicit "CNAE" mention followed by a code, any
// bare four-digit code that is not a year, then keyword scoring. inferred is
// true only when the division came from the keyword table rather than a code
// written in the text; ok is false when nothing matches.
func InferCNAE(purpose string) (division string, inferred, ok bool) {
	if purpose == "" {
		return "", false, false
	}

	if division, ok := explicitCNAE(purpose); ok {
		return division, false, true
	}

	// Any bare four-digit code that is not a 19xx/20xx year.
	for _, m := range bareCodeRe.FindAllStringSubmatch(purpose, -1) {
		code := m[1]
		if code[:2] == "19" || code[:2] == "20" {
			continue
		}
		if division := code[:2]; division != "00" {
			return division, false, true
		}
	}

	// Keyword scoring over the accent-folded text.
	text := strings.ToLower(StripAccents(purpose))
	bestDivision := ""
	bestCount := 0
	for _, entry := range cnaeKeywords {
		count := 0
		for _, kw := range entry.keywords {
			if strings.Contains(text, strings.ToLower(StripAccents(kw))) {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestDivision = entry.division
		}
	}
	if bestCount == 0 {
		return "", false, false
	}
	return bestDivision, true, true
}

// explicitCNAE scans "CNAE" mentions for a division code, skipping optional
// year references ("CNAE 2009:") and "actividad principal" fillers.
func explicitCNAE(purpose string) (string, bool) {
	for _, loc := range cnaeMentionRe.FindAllStringIndex(purpose, -1) {
		rest := purpose[loc[1]:]
		if m := cnaeYearRe.FindString(rest); m != "" {
			rest = rest[len(m):]
		}
		if m := cnaeActivityRe.FindString(rest); m != "" {
			rest = rest[len(m):]
		}
		if m := cnaeSeparatorRe.FindString(rest); m != "" {
			rest = rest[len(m):]
		}

		// "59.15", "5610", "43.2", "68,10": the division is the leading
		// digit pair unless it opens a run of five or more digits.
		m := cnaeCodeRe.FindStringSubmatch(rest)
		if m == nil || len(m[2]) > 2 {
			continue
		}
		if division := m[1]; division != "00" {
			return division, true
		}
	}
	return "", false
}
