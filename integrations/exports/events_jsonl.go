package exports

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"kaiadefi/integrations/indexer"
)

// EventsJSONL builds a JSON Lines export of archived ledger events and returns
// the serialised payload alongside a checksum.
func EventsJSONL(records []indexer.EventRecord) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, rec := range records {
		payload := map[string]interface{}{
			"sequence":    rec.Sequence,
			"id":          rec.ID.String(),
			"type":        rec.Type,
			"account":     rec.Account,
			"ledger_time": rec.LedgerTime,
			"recorded_at": recordedAt(rec).Format(time.RFC3339Nano),
			"attributes":  rec.Attributes,
		}
		if rec.Counterparty != "" {
			payload["counterparty"] = rec.Counterparty
		}
		if err := encoder.Encode(payload); err != nil {
			return nil, "", err
		}
	}
	data := buffer.Bytes()
	checksum := sha256.Sum256(data)
	return data, hex.EncodeToString(checksum[:]), nil
}
