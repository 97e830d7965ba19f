// Package extractor turns raw profile page HTML into news records.
//
// Extraction is a two-stage pipeline. Segment cuts the page into entry
// blocks using the attribute that opens every entry and the counter title
// that closes it. ParseBlock then pulls the four record fields out of a
// single block. The stages fail differently: a page without blocks is just
// empty, a block without fields is pattern drift.
package extractor

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	"profile_watch_bot/internal/model"
)

// ErrNoMatch is returned when a block does not contain every record field.
var ErrNoMatch = errors.New("block does not match record pattern")

var (
	blockPattern = regexp.MustCompile(`rel=["”]nofollow.*?Количество произведений у автора на СИ?`)

	fieldPattern = regexp.MustCompile(
		`00">(.*?) </a` + // name
			`.*?u1=(.*?) target` + // link
			`.*?Дата последнего изменения">(.*?)</ac` + // last change date
			`.*?автора на СИ в килобайтах">(.*?)</acr`, // size
	)
)

// maxBlockInError caps how much of an offending block is echoed in errors.
const maxBlockInError = 300

// ExtractionError reports a block that Segment found but ParseBlock rejected.
type ExtractionError struct {
	Profile string
	Block   string
}

func (e *ExtractionError) Error() string {
	block := e.Block
	if len(block) > maxBlockInError {
		cut := maxBlockInError
		for cut > 0 && !utf8.RuneStart(block[cut]) {
			cut--
		}
		block = block[:cut] + "..."
	}
	return fmt.Sprintf("extract %s: %v: %q", e.Profile, ErrNoMatch, block)
}

func (e *ExtractionError) Unwrap() error {
	return ErrNoMatch
}

// Segment returns the entry blocks of a page in document order.
func Segment(page string) []string {
	return blockPattern.FindAllString(page, -1)
}

// ParseBlock extracts a record from a single entry block.
func ParseBlock(block string) (model.NewsRecord, error) {
	m := fieldPattern.FindStringSubmatch(block)
	if m == nil {
		return model.NewsRecord{}, ErrNoMatch
	}
	return model.NewsRecord{
		Name:        m[1],
		URL:         m[2],
		LastChanges: m[3],
		SizeChanges: m[4],
	}, nil
}

// Extractor runs both stages over a page.
// In strict mode the first block that fails field extraction aborts the
// run with an *ExtractionError; otherwise such blocks are skipped.
type Extractor struct {
	Strict bool
}

// Extract returns the records found on page. Duplicate records are kept;
// profile is only used to annotate errors.
func (x *Extractor) Extract(profile, page string) ([]model.NewsRecord, error) {
	blocks := Segment(page)
	records := make([]model.NewsRecord, 0, len(blocks))
	for _, block := range blocks {
		r, err := ParseBlock(block)
		if err != nil {
			if x.Strict {
				return nil, &ExtractionError{Profile: profile, Block: block}
			}
			continue
		}
		records = append(records, r)
	}
	return records, nil
}
