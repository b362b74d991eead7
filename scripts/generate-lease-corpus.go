//go:build ignore

// Package main generates a synthetic parsed-lease corpus for manual testing
// and benchmarking.
// Usage: go run scripts/generate-lease-corpus.go -leases 50 -output testdata/corpus
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var (
	numLeases = flag.Int("leases", 50, "Number of lease documents to generate")
	outputDir = flag.String("output", "testdata/corpus", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var tenantNames = []string{
	"Harbor Coffee Roasters", "Atlas Dental Group", "Birchwood Fitness",
	"Cobalt Analytics", "Dune Street Books", "Evergreen Grocers",
	"Fulcrum Logistics", "Gilded Spoon Catering", "Halcyon Optics",
	"Ironwood Outfitters", "Juniper Salon", "Keystone Print Shop",
}

var articles = map[string]string{
	"Article I: Premises":   "Landlord leases to Tenant approximately %d rentable square feet on the %s floor of the Building, together with the non-exclusive right to use the common areas.",
	"Article II: Term":      "The initial term is %d years commencing on the Commencement Date. Tenant holds %d option(s) to renew for five years each, exercisable by written notice not less than 270 days before expiration.",
	"Article IV: Rent":      "Tenant shall pay annual base rent in equal monthly installments in advance on the first day of each month, escalating %d percent annually per the rent schedule. Late payments accrue interest at the lesser of 12 percent or the maximum lawful rate.",
	"Article VII: Repairs":  "Landlord maintains the roof, foundation, exterior walls, and building systems. Tenant maintains the interior of the Premises including fixtures and non-structural alterations.",
	"Article IX: Insurance": "Tenant shall carry commercial general liability insurance of not less than $%d,000,000 per occurrence naming Landlord as additional insured.",
	"Exhibit B: Parking":    "Tenant is allocated %d unreserved parking spaces in the surface lot at no additional charge during the initial term.",
}

type table struct {
	Type    string     `json:"type"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type parsedDocument struct {
	DocID      string            `json:"doc_id"`
	SourceFile string            `json:"source_file"`
	TenantName string            `json:"tenant_name"`
	Sections   map[string]string `json:"sections"`
	Tables     []table           `json:"tables"`
	DataSheet  map[string]string `json:"data_sheet"`
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	floors := []string{"first", "second", "third", "fourth"}

	for i := 0; i < *numLeases; i++ {
		tenant := fmt.Sprintf("%s %d", tenantNames[i%len(tenantNames)], i/len(tenantNames)+1)
		sqft := 1000 + rng.Intn(20000)
		baseRent := 15 + rng.Intn(45)
		years := 3 + rng.Intn(8)
		annual := sqft * baseRent

		sections := make(map[string]string, len(articles))
		sections["Article I: Premises"] = fmt.Sprintf(articles["Article I: Premises"], sqft, floors[rng.Intn(len(floors))])
		sections["Article II: Term"] = fmt.Sprintf(articles["Article II: Term"], years, 1+rng.Intn(2))
		sections["Article IV: Rent"] = fmt.Sprintf(articles["Article IV: Rent"], 2+rng.Intn(3))
		sections["Article VII: Repairs"] = articles["Article VII: Repairs"]
		sections["Article IX: Insurance"] = fmt.Sprintf(articles["Article IX: Insurance"], 1+rng.Intn(4))
		sections["Exhibit B: Parking"] = fmt.Sprintf(articles["Exhibit B: Parking"], 2+rng.Intn(40))

		rows := make([][]string, years)
		for y := 0; y < years; y++ {
			rent := float64(annual) * pow(1.03, y)
			rows[y] = []string{
				fmt.Sprintf("%d", y+1),
				fmt.Sprintf("$%.0f", rent),
				fmt.Sprintf("$%.0f", rent/12),
			}
		}

		doc := parsedDocument{
			DocID:      fmt.Sprintf("lease-%03d", i),
			SourceFile: fmt.Sprintf("lease-%03d.docx", i),
			TenantName: tenant,
			Sections:   sections,
			Tables: []table{{
				Type:    "rent_schedule",
				Headers: []string{"Lease Year", "Annual Rent", "Monthly Rent"},
				Rows:    rows,
			}},
			DataSheet: map[string]string{
				"tenant":       tenant,
				"square_feet":  fmt.Sprintf("%d", sqft),
				"base_rent":    fmt.Sprintf("$%d.00 per square foot per year", baseRent),
				"initial_term": fmt.Sprintf("%d years", years),
			},
		}

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal %s: %v\n", doc.DocID, err)
			os.Exit(1)
		}
		path := filepath.Join(*outputDir, doc.DocID+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Printf("generated %d lease documents in %s\n", *numLeases, *outputDir)
}

func pow(base float64, exp int) float64 {
	out := 1.0
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}
