package web

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/binfilter/internal/bins"
)

// criteriaParams are the repeatable filter parameters, in form order.
var criteriaParams = []struct {
	param string
	label string
	dim   bins.Dimension
	field func(*bins.Criteria) *[]string
}{
	{"include_bank", "Bank", bins.DimBank, func(c *bins.Criteria) *[]string { return &c.IncludeBank }},
	{"exclude_bank", "Exclude bank", bins.DimBank, func(c *bins.Criteria) *[]string { return &c.ExcludeBank }},
	{"include_brand", "Brand", bins.DimBrand, func(c *bins.Criteria) *[]string { return &c.IncludeBrand }},
	{"include_type", "Type", bins.DimType, func(c *bins.Criteria) *[]string { return &c.IncludeType }},
	{"include_level", "Level", bins.DimLevel, func(c *bins.Criteria) *[]string { return &c.IncludeLevel }},
	{"exclude_level", "Exclude level", bins.DimLevel, func(c *bins.Criteria) *[]string { return &c.ExcludeLevel }},
	{"include_country", "Country", bins.DimCountry, func(c *bins.Criteria) *[]string { return &c.IncludeCountry }},
	{"include_country_code", "Country code", bins.DimCountryCode, func(c *bins.Criteria) *[]string { return &c.IncludeCountryCode }},
}

// parseCriteria reads filter criteria from query parameters. prefix and
// text are used as given; empty values impose no constraint.
func parseCriteria(q url.Values) (bins.Criteria, error) {
	c := bins.Criteria{
		Prefix:  q.Get("prefix"),
		Prepaid: bins.ParseRequestBool(q.Get("prepaid")),
		Text:    q.Get("text"),
	}
	for _, p := range criteriaParams {
		*p.field(&c) = listParam(q, p.param)
	}

	dedupe, err := parseFlag(q.Get("dedupe"))
	if err != nil {
		return bins.Criteria{}, fmt.Errorf("%w: dedupe=%q", errInvalidQuery, q.Get("dedupe"))
	}
	c.Dedupe = dedupe
	return c, nil
}

// parseFlag reads a boolean query flag; an empty value is false.
func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "0", "no", "off", "f", "n":
		return false, nil
	case "true", "1", "yes", "on", "t", "y":
		return true, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", s)
	}
}

// listParam returns the non-empty values of a repeatable parameter.
func listParam(q url.Values, name string) []string {
	var out []string
	for _, v := range q[name] {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// pageParam reads a positive integer, returning def when it is missing.
func pageParam(q url.Values, name string, def int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s=%q", errInvalidPage, name, v)
	}
	return n, nil
}
