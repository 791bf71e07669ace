package schema

import "strings"

// hintWords expands common abbreviations found in column names.
var hintWords = map[string]string{
	"nm": "name", "dt": "date", "no": "number", "cd": "code",
	"desc": "description", "amt": "amount", "cnt": "count", "qty": "quantity",
	"addr": "address", "tel": "phone", "ph": "phone",
	"pwd": "password", "passwd": "password",
	"zip": "zipcode", "postal": "zipcode",
	"msg": "message", "txt": "text", "tit": "title", "subj": "subject",
	"doc": "document", "usr": "user", "emp": "employee",
	"dept": "department", "grp": "group", "cat": "category",
	"loc": "location", "lat": "latitude", "lng": "longitude", "lon": "longitude",
	"st": "street", "prov": "province", "dist": "district",
	"bal": "balance", "pct": "percent", "rt": "rate",
	"yn": "yesno", "ind": "yesno", "flg": "flag", "stat": "status",
	"typ": "type", "val": "value", "seq": "sequence", "idx": "index",
}

// meaningRules are checked in order against the lowered column comment and
// then against the expanded column name. The first match wins.
var meaningRules = []struct {
	meaning  string
	keywords []string
}{
	{"email", []string{"email", "e-mail"}},
	{"phone", []string{"phone", "mobile", "fax"}},
	{"zipcode", []string{"zipcode", "zip code", "postal"}},
	{"address", []string{"street", "address"}},
	{"city", []string{"city"}},
	{"country", []string{"country"}},
	{"state", []string{"state", "province"}},
	{"latitude", []string{"latitude"}},
	{"longitude", []string{"longitude"}},
	{"name", []string{"name"}},
	{"price", []string{"amount", "price", "cost", "income", "balance", "payment"}},
	{"percent", []string{"percent", "rate", "ratio"}},
	{"count", []string{"count", "quantity", "number of"}},
	{"year", []string{"year"}},
	{"date", []string{"date", "time"}},
	{"yesno", []string{"yesno", "flag", "indicator"}},
	{"url", []string{"url", "uri", "website"}},
	{"description", []string{"description", "comment", "text", "message", "note"}},
}

// AnalyzeMeaning guesses what a column holds from its name and comment. It
// returns one of the keywords of meaningRules, or the column name with its
// abbreviations expanded when nothing matches.
func AnalyzeMeaning(colName, comment string) string {
	c := strings.ToLower(comment)
	for _, r := range meaningRules {
		for _, k := range r.keywords {
			if strings.Contains(c, k) {
				return r.meaning
			}
		}
	}

	parts := strings.Split(strings.ToLower(colName), "_")
	decoded := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if full, ok := hintWords[part]; ok {
			part = full
		}
		decoded = append(decoded, part)
	}
	n := strings.Join(decoded, " ")

	for _, r := range meaningRules {
		for _, k := range r.keywords {
			if strings.Contains(n, k) {
				return r.meaning
			}
		}
	}
	return n
}
