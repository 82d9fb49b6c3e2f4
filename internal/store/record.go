package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Record is one logged weather observation.
// Data is the raw forecast document and is never interpreted here.
type Record struct {
	City      string          `json:"city"`
	Timestamp uint64          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Log is the ordered history, oldest record first.
type Log []Record

// FilterCity returns the records whose city equals city exactly.
func (l Log) FilterCity(city string) Log {
	out := make(Log, 0, len(l))
	for _, r := range l {
		if r.City == city {
			out = append(out, r)
		}
	}
	return out
}

var errMissing = errors.New("missing")

// decodeLog parses content as a JSON array of records. Blank content is an
// empty log. The first malformed record fails the whole decode.
func decodeLog(path string, content []byte) (Log, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return Log{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(content, &items); err != nil {
		return nil, &ParseError{Path: path, Index: -1, Err: err}
	}

	log := make(Log, 0, len(items))
	for i, item := range items {
		rec, err := decodeRecord(item)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Path = path
				pe.Index = i
				return nil, pe
			}
			return nil, &ParseError{Path: path, Index: i, Err: err}
		}
		log = append(log, rec)
	}
	return log, nil
}

// decodeRecord looks fields up by their exact names. encoding/json would
// match struct fields case-insensitively and accept "TIMESTAMP" for
// "timestamp".
func decodeRecord(item json.RawMessage) (Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return Record{}, err
	}

	rawCity, ok := fields["city"]
	if !ok || isNull(rawCity) {
		return Record{}, &ParseError{Field: "city", Err: errMissing}
	}
	var city string
	if err := json.Unmarshal(rawCity, &city); err != nil {
		return Record{}, &ParseError{Field: "city", Err: fmt.Errorf("not a string: %s", rawCity)}
	}

	rawTS, ok := fields["timestamp"]
	if !ok || isNull(rawTS) {
		return Record{}, &ParseError{Field: "timestamp", Err: errMissing}
	}
	var ts uint64
	if err := json.Unmarshal(rawTS, &ts); err != nil {
		return Record{}, &ParseError{Field: "timestamp", Err: fmt.Errorf("not an unsigned integer: %s", rawTS)}
	}

	data, ok := fields["data"]
	if !ok {
		data = json.RawMessage("null")
	}
	return Record{City: city, Timestamp: ts, Data: data}, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// encodeLog renders l in the persisted format. A nil log encodes as [].
// HTML escaping is off so that payload strings are written unchanged.
func encodeLog(l Log) ([]byte, error) {
	if l == nil {
		l = Log{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(l); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
