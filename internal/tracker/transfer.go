package tracker

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExportDocument is the portable representation of the full record set.
// Every field of every record round-trips verbatim.
type ExportDocument struct {
	Records    []LogRecord `json:"records"`
	ExportedAt string      `json:"exported_at"`
}

// BulkTransfer serializes the full record set for backup or transfer, and
// restores a record set from such a document. It only reads from the store
// until the moment it starts writing, so a failed export or import never
// corrupts records it did not touch.
type BulkTransfer struct {
	records RecordStore
	clock   Clock
	logger  Logger
}

func NewBulkTransfer(records RecordStore, clock Clock, logger Logger) *BulkTransfer {
	return &BulkTransfer{records: records, clock: clock, logger: logger}
}

// ExportAll builds a document containing every record, all owners included,
// stamped with the export time.
func (t *BulkTransfer) ExportAll() (*ExportDocument, error) {
	records, err := t.records.AllRecords()
	if err != nil {
		return nil, fmt.Errorf("exporting records: %w", err)
	}
	return &ExportDocument{
		Records:    records,
		ExportedAt: t.clock.Now().Format(time.RFC3339),
	}, nil
}

// ExportJSON returns ExportAll serialized as indented JSON.
func (t *BulkTransfer) ExportJSON() ([]byte, error) {
	doc, err := t.ExportAll()
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export document: %w", err)
	}
	return data, nil
}

// ImportAll upserts every record in the document: records with unknown ids
// are created, records with known ids are overwritten. Records are applied
// in document order and the valid prefix is kept on failure: the first
// invalid record or storage error stops the import, and the returned count
// says how many records were applied before it. There is no rollback.
func (t *BulkTransfer) ImportAll(doc *ExportDocument) (int, error) {
	if doc.Records == nil {
		return 0, &ValidationError{Field: "records", Reason: "document has no records array"}
	}

	applied := 0
	for i, record := range doc.Records {
		if record.ID == "" {
			return applied, &ValidationError{Field: "id", Reason: fmt.Sprintf("record %d has no id", i)}
		}
		if err := record.Validate(); err != nil {
			return applied, fmt.Errorf("record %d: %w", i, err)
		}
		if err := t.records.UpsertRecord(record); err != nil {
			return applied, fmt.Errorf("record %d: %w", i, err)
		}
		applied++
	}

	t.logger.Info("import complete", "records", applied)
	return applied, nil
}

// ImportJSON decodes an export document and imports it. A document missing
// the records array is rejected with a ValidationError before anything is
// written.
func (t *BulkTransfer) ImportJSON(data []byte) (int, error) {
	var doc ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, &ValidationError{Field: "document", Reason: fmt.Sprintf("not a valid export document: %v", err)}
	}
	return t.ImportAll(&doc)
}
