// Package extract recovers structured company records from the text of
// gazette Section A documents. The source format has no machine-readable
// schema; blocks are located by numbered company headers and segmented by a
// fixed act-label vocabulary.
package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/registralia/borme-engine/internal/observability"
	"github.com/registralia/borme-engine/internal/storage"
)

// Currency units as printed in capital clauses.
const (
	CurrencyEUR = "EUR"
	CurrencyPTS = "PTS"
)

// defaultMinTextLen is the shortest document text considered parseable; a
// real publication page always carries more.
const defaultMinTextLen = 50

// Officer is one person/role pair from an appointment-style segment.
type Officer struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Act is one typed segment of a company block.
type Act struct {
	Type     storage.ActType `json:"type"`
	Text     string          `json:"text"`
	Officers []Officer       `json:"officers,omitempty"`
}

// CompanyRecord is the raw parse of one company block, before field
// normalization.
type CompanyRecord struct {
	Ordinal     int                 `json:"ordinal"`
	Name        string              `json:"name"`
	Acts        []Act               `json:"acts"`
	Address     string              `json:"address,omitempty"`
	Purpose     string              `json:"purpose,omitempty"`
	Capital     decimal.NullDecimal `json:"capital"`
	CapitalUnit string              `json:"capital_unit,omitempty"`
	StartDate   string              `json:"start_date,omitempty"`
	RegistryRef string              `json:"registry_ref,omitempty"`
}

// Config tunes the extractor. Zero values select the defaults.
type Config struct {
	// ActKeywords overrides the act label table.
	ActKeywords []ActKeyword
	// HeaderFilter decides whether a header capture is a real company name.
	HeaderFilter func(name string) bool
	// MinTextLen is the shortest document text considered parseable.
	MinTextLen int
}

// Extractor turns raw gazette text into company records.
type Extractor struct {
	actRe      *regexp.Regexp
	actTypes   map[string]storage.ActType
	headerOK   func(string) bool
	minTextLen int
	logger     *observability.Logger
}

var (
	// Company block header: "123 - EMPRESA EJEMPLO SL." or "123.- EMPRESA EJEMPLO SL."
	headerRe = regexp.MustCompile(`(?m)^(\d+)\s*[-.]+\s*(.+?)(?:\.\s*$|\.$)`)

	// Capital clause: "Capital: 3.000,00 Euros." or "Capital suscrito: 60.000 Euros."
	capitalRe = regexp.MustCompile(`(?i)Capital(?:\s+suscrito)?:\s+([\d.,]+)\s+(Euros?|€|Pesetas)`)

	// Operations start: "Comienzo de operaciones: 15.01.25" or "15/01/2025".
	startDateRe = regexp.MustCompile(`(?i)Comienzo\s+de\s+operaciones:\s+(\d{1,2}[./]\d{1,2}[./]\d{2,4})`)

	// Business purpose and registered address run until the next known field
	// label or the end of the segment.
	purposeRe = regexp.MustCompile(`(?is)Objeto\s+social:\s+(.+?)\.(?:\s+(?:Domicilio:|Capital:|Comienzo)|\s*$)`)
	addressRe = regexp.MustCompile(`(?is)Domicilio:\s+(.+?)\.(?:\s+(?:Capital:|Objeto\s+social:|Comienzo|Datos)|\s*$)`)

	// Registry reference fragment: "T 2595, F 113, S 8, H M 46898, I/A 23 (19.02.24)".
	registryRefRe = regexp.MustCompile(`T\s+\d+\s*,\s*F\s+\d+\s*,\s*S\s+\d+\s*,\s*H\s+[A-Z]{0,3}\s*-?\s*\d+(?:\s*,\s*I/A\s+\d+)?(?:\s*\(\s*\d{1,2}\.\d{1,2}\.\d{2,4}\s*\))?`)

	// Officer role labels; the captured role is followed by the names run.
	officerRoleRe = regexp.MustCompile(`(?i)(Adm\.\s*(?:Unico|Unica|Solid|Mancom)\.?|Vicepresidente|Presidente|Secretario|Consejero|Liquidador|Auditor(?:\s+de\s+cuentas)?|Apoderado|Director\s+General|Cons\.\s*Del(?:eg)?\.?)\s*[:.]?\s*`)

	alphaRunRe = regexp.MustCompile(`\p{L}\p{L}`)
)

// DefaultHeaderFilter refuses header captures that are registry sub-lines
// rather than company names: anything starting with an opening parenthesis,
// or without an alphabetic run of at least two letters. This is a heuristic
// for a known source-format ambiguity, kept separate from the block scan so
// it can be tightened on its own.
func DefaultHeaderFilter(name string) bool {
	if strings.HasPrefix(name, "(") {
		return false
	}
	return alphaRunRe.MatchString(name)
}

// NewExtractor creates an extractor. A nil logger disables logging.
func NewExtractor(cfg Config, logger *observability.Logger) *Extractor {
	if logger == nil {
		logger = observability.Nop()
	}
	keywords := cfg.ActKeywords
	if len(keywords) == 0 {
		keywords = DefaultActKeywords()
	}
	headerOK := cfg.HeaderFilter
	if headerOK == nil {
		headerOK = DefaultHeaderFilter
	}
	minTextLen := cfg.MinTextLen
	if minTextLen <= 0 {
		minTextLen = defaultMinTextLen
	}
	actRe, actTypes := compileActPattern(keywords)

	return &Extractor{
		actRe:      actRe,
		actTypes:   actTypes,
		headerOK:   headerOK,
		minTextLen: minTextLen,
		logger:     logger.WithComponent("extract"),
	}
}

// ParseFile extracts the text of a PDF document and parses its company
// blocks. A document whose text is empty or implausibly short yields zero
// records without an error; that is a per-document condition, not a batch
// failure.
func (e *Extractor) ParseFile(ctx context.Context, path string) ([]CompanyRecord, error) {
	text, err := PDFText(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(text)) < e.minTextLen {
		e.logger.Warn().Str("path", path).Msg("document text empty or too short")
		return nil, nil
	}
	return e.Parse(text), nil
}

// Parse extracts company records from document text. Pass 1 locates accepted
// block headers; pass 2 slices the text between consecutive headers and
// parses each block.
func (e *Extractor) Parse(text string) []CompanyRecord {
	type header struct {
		start, end int
		ordinal    int
		name       string
	}

	var headers []header
	for _, m := range headerRe.FindAllStringSubmatchIndex(text, -1) {
		name := strings.TrimSpace(text[m[4]:m[5]])
		if !e.headerOK(name) {
			continue
		}
		ordinal, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		headers = append(headers, header{start: m[0], end: m[1], ordinal: ordinal, name: name})
	}
	if len(headers) == 0 {
		e.logger.Warn().Msg("no company headers found in document text")
		return nil
	}

	records := make([]CompanyRecord, 0, len(headers))
	for i, h := range headers {
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1].start
		}
		block := strings.TrimSpace(text[h.end:end])
		name := h.name

		// A block collapsed onto its header line leaves act vocabulary
		// inside the captured name; split it back apart at the sentence
		// boundary before the first label.
		if loc := e.actRe.FindStringIndex(name); loc != nil {
			if cut := strings.LastIndex(name[:loc[0]], ". "); cut >= 0 {
				block = strings.TrimSpace(name[cut+2:] + " " + block)
				name = name[:cut]
			}
		}

		rec := CompanyRecord{Ordinal: h.ordinal, Name: name}
		e.parseBlock(&rec, block)
		records = append(records, rec)
	}

	e.logger.Debug().Int("companies", len(records)).Msg("parsed document text")
	return records
}

// parseBlock segments one company's block by act labels and extracts the
// field clauses.
func (e *Extractor) parseBlock(rec *CompanyRecord, block string) {
	matches := e.actRe.FindAllStringSubmatchIndex(block, -1)
	if len(matches) == 0 {
		// No recognized act: keep the whole block as a generic act.
		rec.Acts = append(rec.Acts, Act{Type: storage.ActTypeOther, Text: block})
	} else {
		for i, m := range matches {
			label := block[m[2]:m[3]]
			actType, ok := e.actTypes[strings.ToLower(label)]
			if !ok {
				actType = storage.ActTypeOther
			}
			end := len(block)
			if i+1 < len(matches) {
				end = matches[i+1][0]
			}
			segment := strings.TrimSpace(block[m[1]:end])

			act := Act{Type: actType, Text: segment}
			if _, hasOfficers := OfficerEventTypeFor(actType); hasOfficers {
				act.Officers = extractOfficers(segment)
			}
			rec.Acts = append(rec.Acts, act)
		}
	}

	// Field clauses come from the incorporation segment when present, else
	// from the whole block.
	searchText := block
	for _, act := range rec.Acts {
		if act.Type == storage.ActTypeIncorporation {
			searchText = act.Text
			break
		}
	}

	if m := capitalRe.FindStringSubmatch(searchText); m != nil {
		if amount, err := ParseAmount(m[1]); err == nil {
			rec.Capital = decimal.NullDecimal{Decimal: amount, Valid: true}
			if strings.Contains(strings.ToLower(m[2]), "peseta") {
				rec.CapitalUnit = CurrencyPTS
			} else {
				rec.CapitalUnit = CurrencyEUR
			}
		}
	}
	if m := addressRe.FindStringSubmatch(searchText); m != nil {
		rec.Address = collapseSpaces(m[1])
	}
	if m := purposeRe.FindStringSubmatch(searchText); m != nil {
		rec.Purpose = collapseSpaces(m[1])
	}
	if m := startDateRe.FindStringSubmatch(searchText); m != nil {
		rec.StartDate = m[1]
	}
	if refs := registryRefRe.FindAllString(block, -1); len(refs) > 0 {
		rec.RegistryRef = strings.Join(refs, "; ")
	}
}

// ParseAmount parses a gazette amount string like "3.000,00" (dots as
// thousands separators, comma as decimal mark) into a decimal.
func ParseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(raw, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	return decimal.NewFromString(cleaned)
}

// extractOfficers pulls person/role pairs out of an appointment-style
// segment. Each role label is followed by one or more semicolon-separated
// names; the run ends at the next role label, a line break, or a sentence
// boundary.
func extractOfficers(segment string) []Officer {
	matches := officerRoleRe.FindAllStringSubmatchIndex(segment, -1)
	var officers []Officer
	for i, m := range matches {
		role := cleanOfficerRole(segment[m[2]:m[3]])
		end := len(segment)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		for _, name := range splitOfficerNames(segment[m[1]:end]) {
			officers = append(officers, Officer{Name: name, Role: role})
		}
	}
	return officers
}

func cleanOfficerRole(role string) string {
	role = strings.TrimSpace(role)
	role = strings.TrimRight(role, ":.")
	return collapseSpaces(role)
}

func splitOfficerNames(chunk string) []string {
	if idx := strings.IndexByte(chunk, '\n'); idx >= 0 {
		chunk = chunk[:idx]
	}
	if idx := strings.Index(chunk, ". "); idx >= 0 {
		chunk = chunk[:idx]
	}

	var names []string
	for _, part := range strings.Split(chunk, ";") {
		name := strings.TrimSpace(part)
		name = strings.Trim(name, ":;.,-")
		name = strings.TrimSpace(name)
		if utf8.RuneCountInString(name) > 2 {
			names = append(names, name)
		}
	}
	return names
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
