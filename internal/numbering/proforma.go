package numbering

import (
	"sort"
	"strings"
)

// Proforma companies issue quotations under fixed prefixes.
const (
	CompanyHeadOffice     = "Head Office"
	CompanyRetailDivision = "Retail Division"
	CompanyOnlineStore    = "Online Store"
)

var proformaPrefixes = map[string]string{
	CompanyHeadOffice:     "HO/PF/",
	CompanyRetailDivision: "RD/PF/",
	CompanyOnlineStore:    "OS/PF/",
}

// ProformaPrefix resolves the quotation prefix for a company name.
func ProformaPrefix(companyName string) (string, error) {
	for name, prefix := range proformaPrefixes {
		if strings.EqualFold(name, strings.TrimSpace(companyName)) {
			return prefix, nil
		}
	}
	return "", ErrMissingPrefix
}

// ProformaCompanies lists the company names accepted by ProformaPrefix.
func ProformaCompanies() []string {
	names := make([]string, 0, len(proformaPrefixes))
	for name := range proformaPrefixes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
