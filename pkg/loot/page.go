package loot

import (
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrNoData means the upstream answered without any payload, which marks the end of pagination.
	ErrNoData = errors.New("no data in page")
	// ErrMalformedPage means the body is not valid JSON.
	ErrMalformedPage = errors.New("malformed page body")
)

// ParsePage extracts the records belonging to alliance from a page body of the form
// {"content":{"L":[[_, id, {"AN":..., "CF":..., "N":...}], ...]}}.
// A page whose match list is present but empty yields no records and no error.
func ParsePage(body, alliance string) ([]Record, error) {
	if !gjson.Valid(body) {
		return nil, ErrMalformedPage
	}

	page := gjson.Parse(body)
	if isEmptyPayload(page) {
		return nil, ErrNoData
	}

	var records []Record
	page.Get("content.L").ForEach(func(_, item gjson.Result) bool {
		info := item.Get("2")
		if !info.IsObject() || info.Get("AN").String() != alliance {
			return true
		}
		records = append(records, Record{
			ID:        item.Get("1").Int(),
			Name:      info.Get("N").String(),
			LootValue: parseLootValue(info.Get("CF")),
		})
		return true
	})

	return records, nil
}

func isEmptyPayload(page gjson.Result) bool {
	switch {
	case !page.Exists(), page.Type == gjson.Null, page.Type == gjson.False:
		return true
	case page.Type == gjson.Number:
		return page.Float() == 0
	case page.IsObject():
		return len(page.Map()) == 0
	case page.IsArray():
		return len(page.Array()) == 0
	case page.Type == gjson.String:
		return page.Str == ""
	}
	return false
}

// parseLootValue reads CF, which the upstream sends either as a number or a numeric string.
func parseLootValue(cf gjson.Result) int64 {
	switch cf.Type {
	case gjson.Number:
		return cf.Int()
	case gjson.String:
		n, err := strconv.ParseInt(strings.TrimSpace(cf.Str), 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}
