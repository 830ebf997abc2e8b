package gazette

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/beevik/etree"

	"github.com/registralia/borme-engine/internal/cache"
)

// sectionRegisteredActs is the day-index section carrying registered-company
// acts; the other sections (announcements, cross references) are skipped.
const sectionRegisteredActs = "A"

// DayIndex fetches and parses the day index for an ISO date. A date with no
// publication returns ErrNoPublication wrapped with the date; any other
// non-success status is an error for the date.
func (c *Client) DayIndex(ctx context.Context, date string) (*DayIndex, error) {
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, cache.DayIndexKey(date)); err == nil {
			index, perr := c.parseDayIndex(date, raw)
			if perr == nil {
				c.logger.Debug().Str("date", date).Msg("day index served from cache")
				return index, nil
			}
			// A corrupt cached document falls through to a fresh fetch.
			c.logger.Warn().Str("date", date).Err(perr).Msg("discarding cached day index")
		}
	}

	raw, err := c.fetchDayIndex(ctx, date)
	if err != nil {
		return nil, err
	}

	index, err := c.parseDayIndex(date, raw)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cache.DayIndexKey(date), raw, c.cacheTTL); err != nil {
			c.logger.Warn().Str("date", date).Err(err).Msg("day index cache write failed")
		}
	}

	c.logger.Info().Str("date", date).Int("documents", len(index.Documents)).Msg("resolved day index")
	return index, nil
}

func (c *Client) fetchDayIndex(ctx context.Context, date string) ([]byte, error) {
	compact := strings.ReplaceAll(date, "-", "")
	url := fmt.Sprintf("%s/datosabiertos/api/borme/sumario/%s", c.baseURL, compact)

	ctx, cancel := context.WithTimeout(ctx, c.indexTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create day index request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch day index for %s: %w", date, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", date, ErrNoPublication)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("day index for %s: status %d", date, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read day index for %s: %w", date, err)
	}
	return raw, nil
}

// parseDayIndex extracts the registered-acts section items from day-index
// XML. Items missing an identifier or a download URL are skipped per item,
// never failing the whole index.
func (c *Client) parseDayIndex(date string, raw []byte) (*DayIndex, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("parse day index for %s: %w", date, err)
	}

	index := &DayIndex{Date: date}
	for _, seccion := range doc.FindElements("//seccion") {
		if seccion.SelectAttrValue("codigo", "") != sectionRegisteredActs {
			continue
		}
		for _, item := range seccion.SelectElements("item") {
			id := elementText(item, "identificador")
			pdfURL := elementText(item, "url_pdf")
			if id == "" || pdfURL == "" {
				continue
			}
			if !strings.HasPrefix(pdfURL, "http") {
				pdfURL = c.baseURL + pdfURL
			}
			region := elementText(item, "titulo")
			if region == "" {
				region = "Desconocida"
			}
			index.Documents = append(index.Documents, DocumentRef{
				ID:     id,
				Region: region,
				PDFURL: pdfURL,
			})
		}
	}
	return index, nil
}

func elementText(parent *etree.Element, tag string) string {
	el := parent.SelectElement(tag)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}
