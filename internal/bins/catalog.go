package bins

// Dimension is a logical, filterable attribute of a BIN record.
type Dimension string

const (
	DimBIN         Dimension = "bin"
	DimBank        Dimension = "bank"
	DimBrand       Dimension = "brand"
	DimType        Dimension = "type"
	DimLevel       Dimension = "level"
	DimCountry     Dimension = "country"
	DimCountryCode Dimension = "country_code"
	DimCurrency    Dimension = "currency"
	DimPrepaid     Dimension = "prepaid"
	DimBankURL     Dimension = "bank_url"
	DimBankPhone   Dimension = "bank_phone"
	DimBankCity    Dimension = "bank_city"
	DimBankState   Dimension = "bank_state"
)

// CatalogEntry lists the column-name synonyms recognized for a dimension.
type CatalogEntry struct {
	Dimension Dimension
	Synonyms  []string
}

// catalog is ordered; Dimensions and Detect walk it top to bottom.
var catalog = [...]CatalogEntry{
	{DimBIN, []string{"bin", "iin", "bin_number", "first6", "prefix"}},
	{DimBank, []string{"bank", "issuer", "bank_name", "issuer_name", "institution"}},
	{DimBrand, []string{"brand", "scheme", "network", "card_scheme"}},
	{DimType, []string{"type", "card_type", "funding", "debit_credit"}},
	{DimLevel, []string{"level", "category", "card_category", "tier", "class"}},
	{DimCountry, []string{"country", "country_name"}},
	{DimCountryCode, []string{"country_code", "alpha_2", "alpha2", "alpha_3", "alpha3", "iso2", "iso3"}},
	{DimCurrency, []string{"currency", "iso_currency", "currency_code"}},
	{DimPrepaid, []string{"prepaid", "is_prepaid", "prepago"}},
	{DimBankURL, []string{"bank_url", "website"}},
	{DimBankPhone, []string{"bank_phone", "phone"}},
	{DimBankCity, []string{"bank_city", "city"}},
	{DimBankState, []string{"bank_state", "state", "region"}},
}

// Catalog returns a copy of the dimension catalog in declaration order.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(catalog))
	for i, e := range catalog {
		out[i] = CatalogEntry{
			Dimension: e.Dimension,
			Synonyms:  append([]string(nil), e.Synonyms...),
		}
	}
	return out
}

// Dimensions returns every known dimension in catalog order.
func Dimensions() []Dimension {
	out := make([]Dimension, len(catalog))
	for i, e := range catalog {
		out[i] = e.Dimension
	}
	return out
}

// IsDimension reports whether name is a catalog dimension.
func IsDimension(name string) bool {
	for _, e := range catalog {
		if string(e.Dimension) == name {
			return true
		}
	}
	return false
}
