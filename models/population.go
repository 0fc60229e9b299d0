package models

import (
	"sort"
	"strings"
)

// Populations lists the 1000 Genomes population and super-population codes
// accepted by LDlink.
var Populations = map[string]string{
	"ALL": "All populations",
	"AFR": "African",
	"YRI": "Yoruba in Ibadan, Nigeria",
	"LWK": "Luhya in Webuye, Kenya",
	"GWD": "Gambian in Western Gambia",
	"MSL": "Mende in Sierra Leone",
	"ESN": "Esan in Nigeria",
	"ASW": "Americans of African Ancestry in SW USA",
	"ACB": "African Caribbeans in Barbados",
	"AMR": "Ad Mixed American",
	"MXL": "Mexican Ancestry from Los Angeles USA",
	"PUR": "Puerto Ricans from Puerto Rico",
	"CLM": "Colombians from Medellin, Colombia",
	"PEL": "Peruvians from Lima, Peru",
	"EAS": "East Asian",
	"CHB": "Han Chinese in Beijing, China",
	"JPT": "Japanese in Tokyo, Japan",
	"CHS": "Southern Han Chinese",
	"CDX": "Chinese Dai in Xishuangbanna, China",
	"KHV": "Kinh in Ho Chi Minh City, Vietnam",
	"EUR": "European",
	"CEU": "Utah Residents from North and West Europe",
	"TSI": "Toscani in Italia",
	"FIN": "Finnish in Finland",
	"GBR": "British in England and Scotland",
	"IBS": "Iberian Population in Spain",
	"SAS": "South Asian",
	"GIH": "Gujarati Indian from Houston, Texas",
	"PJL": "Punjabi from Lahore, Pakistan",
	"BEB": "Bengali from Bangladesh",
	"STU": "Sri Lankan Tamil from the UK",
	"ITU": "Indian Telugu from the UK",
}

// NormalizePopulation upper-cases a population code or a '+' separated
// combination of codes and reports whether every code is known.
func NormalizePopulation(pop string) (string, bool) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(pop)), "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if _, ok := Populations[p]; !ok {
			return "", false
		}
		parts[i] = p
	}
	return strings.Join(parts, "+"), true
}

// PopulationCodes returns the known codes, sorted.
func PopulationCodes() []string {
	codes := make([]string, 0, len(Populations))
	for code := range Populations {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
