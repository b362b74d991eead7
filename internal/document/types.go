// Package document defines the parsed-document contract consumed by the
// chunking pipeline. Parsing itself (DOCX, PDF, OCR) happens upstream;
// leaseindex receives documents already segmented into named sections,
// classified tables, and an optional data sheet.
package document

// Table is a parsed table extracted from a lease document.
type Table struct {
	// Type is the table classification ("rent_schedule", "data_sheet",
	// "general"). Empty means unclassified; ClassifyTable fills it in.
	Type string `json:"type"`

	// Headers is the header row.
	Headers []string `json:"headers"`

	// Rows are the data rows.
	Rows [][]string `json:"rows"`
}

// ParsedDocument is a fully parsed lease document ready for chunking.
type ParsedDocument struct {
	// DocID uniquely identifies the document within the corpus.
	DocID string `json:"doc_id"`

	// SourceFile is the original file name, kept for citation.
	SourceFile string `json:"source_file"`

	// TenantName is the tenant this lease belongs to.
	TenantName string `json:"tenant_name"`

	// Sections maps section names ("Article IV: Rent", "Exhibit B") to
	// their text content.
	Sections map[string]string `json:"sections"`

	// Tables are parsed tables in document order.
	Tables []Table `json:"tables"`

	// DataSheet holds the lease's key-value summary fields, if present.
	DataSheet map[string]string `json:"data_sheet,omitempty"`

	// Metadata carries additional document-level fields (category,
	// property id, ...) copied onto every chunk.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Valid reports whether the document carries the minimum identity needed
// for chunking.
func (d *ParsedDocument) Valid() bool {
	return d.DocID != ""
}
