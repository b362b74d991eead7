package document

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/medleycre/leaseindex/internal/errors"
)

// LoadFile reads one parsed-document JSON file. The DocID defaults to the
// file name stem and SourceFile to the file name when the document omits
// them.
func LoadFile(path string) (*ParsedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeDocumentNotFound,
				fmt.Sprintf("document %s not found", path), err)
		}
		return nil, errors.Wrap(errors.ErrCodeDocumentCorrupt, err)
	}

	var doc ParsedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(errors.ErrCodeDocumentCorrupt,
			fmt.Sprintf("document %s is not valid JSON", path), err)
	}

	base := filepath.Base(path)
	if doc.DocID == "" {
		doc.DocID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if doc.SourceFile == "" {
		doc.SourceFile = base
	}
	return &doc, nil
}

// LoadDir reads every .json document in a directory, sorted by file name.
// Unreadable or malformed files are skipped and counted rather than failing
// the whole batch.
func LoadDir(dir string) ([]*ParsedDocument, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, errors.New(errors.ErrCodeDocumentNotFound,
			fmt.Sprintf("cannot read document directory %s", dir), err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var docs []*ParsedDocument
	skipped := 0
	for _, name := range names {
		doc, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			skipped++
			continue
		}
		docs = append(docs, doc)
	}
	return docs, skipped, nil
}
