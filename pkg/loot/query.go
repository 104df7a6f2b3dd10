package loot

import "strconv"

const (
	DefaultBaseURL  = "https://empire-api.fly.dev/EmpireEx_21/hgh/"
	DefaultAlliance = "Soft Kittens"

	// firstPageSV is the SV value the upstream expects for page 0.
	firstPageSV = "225"

	svPrefix = "22"
	svBase   = 215
	svStep   = 10
)

// PageQuery returns the SV parameter for the given page index.
// Page 0 is 225, page i>=1 is "22" followed by 215+10*(i-1): 22215, 22225, ...
func PageQuery(index int) string {
	if index <= 0 {
		return firstPageSV
	}
	return svPrefix + strconv.Itoa(svBase+svStep*(index-1))
}

// PageURL embeds the page query into the upstream's fixed query template.
func PageURL(baseURL string, index int) string {
	return baseURL + "%22LT%22:2,%22LID%22:1,%22SV%22:%" + PageQuery(index) + "%22"
}
