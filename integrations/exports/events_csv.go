package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"kaiadefi/integrations/indexer"
)

// EventsCSV builds a CSV export of archived ledger events and returns the
// serialised data alongside a SHA-256 checksum of the payload. Attributes are
// flattened into a single key=value column sorted by key.
func EventsCSV(records []indexer.EventRecord) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	header := []string{"sequence", "id", "type", "account", "counterparty", "ledger_time", "recorded_at", "attributes"}
	if err := writer.Write(header); err != nil {
		return nil, "", err
	}
	for _, rec := range records {
		row := []string{
			strconv.FormatUint(rec.Sequence, 10),
			rec.ID.String(),
			rec.Type,
			rec.Account,
			rec.Counterparty,
			strconv.FormatUint(rec.LedgerTime, 10),
			recordedAt(rec).Format(time.RFC3339Nano),
			flatten(rec.Attributes),
		}
		if err := writer.Write(row); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}

func recordedAt(rec indexer.EventRecord) time.Time {
	if rec.CreatedAt.IsZero() && rec.LedgerTime > 0 {
		return time.Unix(int64(rec.LedgerTime), 0).UTC()
	}
	return rec.CreatedAt.UTC()
}

func flatten(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	return strings.Join(parts, ";")
}
