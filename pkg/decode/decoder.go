// Package decode turns the raw body of the parking occupancy feed into
// facility records.
//
// The feed wraps its rows in a single named envelope:
//
//	{
//	  "SearchParkingInfoRealtime": {
//	    "list_total_count": 460,
//	    "RESULT": {"CODE": "INFO-000", "MESSAGE": "..."},
//	    "row": [
//	      {"PARKING_CODE": "1037932", "PARKING_NAME": "...",
//	       "LAT": "37.48543179", "LNG": "126.90124331",
//	       "CAPACITY": 10, "CUR_PARKING": 4}
//	    ]
//	  }
//	}
//
// Document-level shape violations fail with *DecodeError. A malformed row is
// logged, counted and skipped; the remaining rows are still decoded.
package decode

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Sternrassler/parking-feed/pkg/parking"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultEnvelope is the envelope name of the real-time parking feed.
const DefaultEnvelope = "SearchParkingInfoRealtime"

// Field names inside a row.
const (
	FieldCode     = "PARKING_CODE"
	FieldName     = "PARKING_NAME"
	FieldLat      = "LAT"
	FieldLng      = "LNG"
	FieldCapacity = "CAPACITY"
	FieldCurrent  = "CUR_PARKING"
)

// Result is the service status block carried in the envelope, or at the top
// level when the service has nothing to return.
type Result struct {
	Code    string `json:"CODE"`
	Message string `json:"MESSAGE"`
}

// Page is one decoded window of the feed.
type Page struct {
	// TotalCount is list_total_count, the number of rows across all windows.
	TotalCount int
	Result     *Result
	Facilities []parking.Facility
	// Skipped counts malformed rows that were dropped.
	Skipped int
}

// Decoder decodes feed bodies for one envelope name. It holds no state
// between calls and is safe for concurrent use.
type Decoder struct {
	envelope string
	logger   zerolog.Logger
}

// New creates a decoder for the given envelope; an empty name selects
// DefaultEnvelope.
func New(envelope string, logger zerolog.Logger) *Decoder {
	if envelope == "" {
		envelope = DefaultEnvelope
	}
	return &Decoder{
		envelope: envelope,
		logger:   logger,
	}
}

// NewDefault creates a decoder for DefaultEnvelope logging through the global logger.
func NewDefault() *Decoder {
	return New(DefaultEnvelope, log.With().Str("component", "parking-decoder").Logger())
}

// Envelope returns the envelope name the decoder expects.
func (d *Decoder) Envelope() string {
	return d.envelope
}

// Decode returns the facilities of body in source order.
func (d *Decoder) Decode(body string) ([]parking.Facility, error) {
	page, err := d.DecodePage(body)
	if err != nil {
		return nil, err
	}
	return page.Facilities, nil
}

// DecodePage decodes body and keeps the envelope metadata.
func (d *Decoder) DecodePage(body string) (*Page, error) {
	if !json.Valid([]byte(body)) {
		return nil, d.fail(&DecodeError{Reason: ReasonMalformedJSON})
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &top); err != nil || top == nil {
		return nil, d.fail(&DecodeError{
			Reason: ReasonMissingEnvelope,
			Detail: "top-level value is not an object",
		})
	}

	envelope, err := objectField(top, d.envelope)
	if err != nil {
		decErr := &DecodeError{Reason: ReasonMissingEnvelope, Detail: fmt.Sprintf("%s: %v", d.envelope, err)}
		// The service answers "no data" and key errors with a bare RESULT.
		if res := parseResult(top["RESULT"]); res != nil {
			decErr.Detail = fmt.Sprintf("%s: %s", res.Code, res.Message)
		}
		return nil, d.fail(decErr)
	}

	rawRows, ok := envelope["row"]
	if !ok || string(rawRows) == "null" {
		return nil, d.fail(&DecodeError{Reason: ReasonMissingRows, Detail: "row field absent"})
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(rawRows, &rows); err != nil {
		return nil, d.fail(&DecodeError{Reason: ReasonMissingRows, Detail: "row is not an array"})
	}

	page := &Page{
		Result:     parseResult(envelope["RESULT"]),
		Facilities: make([]parking.Facility, 0, len(rows)),
	}
	if total, err := parseInt(envelope["list_total_count"]); err == nil {
		page.TotalCount = total
	}

	for i, raw := range rows {
		facility, err := decodeRow(raw)
		if err != nil {
			page.Skipped++
			RowsSkipped.WithLabelValues(err.label).Inc()
			d.logger.Warn().
				Int("index", i).
				Str("code", err.code).
				Str("field", err.field).
				Err(err.err).
				Msg("Skipping malformed row")
			continue
		}
		page.Facilities = append(page.Facilities, facility)
	}

	if page.Skipped > 0 {
		d.logger.Warn().
			Int("rows", len(rows)).
			Int("skipped", page.Skipped).
			Msg("Decoded feed with malformed rows")
	} else {
		d.logger.Debug().Int("rows", len(rows)).Msg("Decoded feed")
	}

	return page, nil
}

func (d *Decoder) fail(err *DecodeError) error {
	DecodeFailures.WithLabelValues(string(err.Reason)).Inc()
	d.logger.Error().
		Str("reason", string(err.Reason)).
		Str("detail", err.Detail).
		Msg("Feed document rejected")
	return err
}

// rowError describes why a single row was skipped.
type rowError struct {
	label string
	field string
	code  string
	err   error
}

func decodeRow(raw json.RawMessage) (parking.Facility, *rowError) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return parking.Facility{}, &rowError{label: "not_object", err: errors.New("row is not an object")}
	}

	var f parking.Facility
	var err error

	f.Code, err = scalarText(fields[FieldCode])
	if err == nil && f.Code == "" {
		err = errFieldMissing
	}
	if err != nil {
		return f, fieldError(FieldCode, "", err)
	}

	// The name is display-only; a missing or odd value leaves it empty.
	if name, err := scalarText(fields[FieldName]); err == nil {
		f.Name = name
	}

	if f.Latitude, err = parseFloat(fields[FieldLat]); err != nil {
		return f, fieldError(FieldLat, f.Code, err)
	}
	if f.Longitude, err = parseFloat(fields[FieldLng]); err != nil {
		return f, fieldError(FieldLng, f.Code, err)
	}
	if f.Capacity, err = parseCount(fields[FieldCapacity]); err != nil {
		return f, fieldError(FieldCapacity, f.Code, err)
	}
	if f.CurrentOccupancy, err = parseCount(fields[FieldCurrent]); err != nil {
		return f, fieldError(FieldCurrent, f.Code, err)
	}

	return f, nil
}

func parseCount(raw json.RawMessage) (int, error) {
	n, err := parseInt(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count %d", n)
	}
	return n, nil
}

func fieldError(field, code string, err error) *rowError {
	label := "invalid_value"
	if errors.Is(err, errFieldMissing) {
		label = "missing_field"
	}
	return &rowError{label: label, field: field, code: code, err: err}
}

func objectField(obj map[string]json.RawMessage, name string) (map[string]json.RawMessage, error) {
	raw, ok := obj[name]
	if !ok {
		return nil, errors.New("field absent")
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(raw, &inner); err != nil || inner == nil {
		return nil, errors.New("not an object")
	}
	return inner, nil
}

func parseResult(raw json.RawMessage) *Result {
	if len(raw) == 0 {
		return nil
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil || res.Code == "" {
		return nil
	}
	return &res
}
