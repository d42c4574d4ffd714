// Package dashboard scrapes vaccination totals out of the state's HTML
// vaccine dashboard. This is the legacy source from before the GeoJSON
// pivot feed existed and it is inherently fragile: the numbers sit in
// unlabeled table cells located by fixed offsets from a known anchor
// phrase. The adapter re-validates the anchor on every parse and fails
// with a typed parse error rather than returning a silently wrong value
// when the page layout shifts.
package dashboard

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/coloradocovid/covid-data-etl/internal/domain"
)

// anchorPhrase marks the table cell the value offsets are measured from.
const anchorPhrase = "People immunized with one dose"

// Cell offsets from the anchor, in source order.
const (
	offsetOneDose  = 1
	offsetTwoDoses = 3
	offsetModerna  = 5
	offsetPfizer   = 7
)

// ParseSnapshot extracts the four vaccination totals published on the
// dashboard and attributes them to the given reporting date. Only totals
// are recovered here; daily quantities are derived later against the
// previous day's stored record.
func ParseSnapshot(raw []byte, date time.Time) (domain.DailyVaccineRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return domain.DailyVaccineRecord{}, &domain.ParseError{
			Source: "vaccine dashboard html", Reason: "unreadable document", Err: err,
		}
	}

	var cells []string
	doc.Find("td").Each(func(_ int, sel *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(sel.Text()))
	})

	anchor := -1
	for i, text := range cells {
		if strings.Contains(text, anchorPhrase) {
			anchor = i
			break
		}
	}
	if anchor == -1 {
		return domain.DailyVaccineRecord{}, &domain.ParseError{
			Source: "vaccine dashboard html",
			Reason: "anchor phrase not found; page layout likely changed",
		}
	}

	oneDose, err := cellValue(cells, anchor, offsetOneDose)
	if err != nil {
		return domain.DailyVaccineRecord{}, err
	}
	twoDoses, err := cellValue(cells, anchor, offsetTwoDoses)
	if err != nil {
		return domain.DailyVaccineRecord{}, err
	}
	moderna, err := cellValue(cells, anchor, offsetModerna)
	if err != nil {
		return domain.DailyVaccineRecord{}, err
	}
	pfizer, err := cellValue(cells, anchor, offsetPfizer)
	if err != nil {
		return domain.DailyVaccineRecord{}, err
	}

	return domain.DailyVaccineRecord{
		ReportingDate: date,
		OneDoseTotal:  &oneDose,
		TwoDosesTotal: &twoDoses,
		ModernaTotal:  &moderna,
		PfizerTotal:   &pfizer,
	}, nil
}

// cellValue reads the comma-grouped integer at a fixed offset from the anchor.
func cellValue(cells []string, anchor, offset int) (int, error) {
	i := anchor + offset
	if i >= len(cells) {
		return 0, &domain.ParseError{
			Source: "vaccine dashboard html",
			Reason: "value cell missing at offset " + strconv.Itoa(offset),
		}
	}

	text := strings.ReplaceAll(cells[i], ",", "")
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, &domain.ParseError{
			Source: "vaccine dashboard html",
			Reason: "non-numeric value cell at offset " + strconv.Itoa(offset),
			Err:    err,
		}
	}
	return n, nil
}
