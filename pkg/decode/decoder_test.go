package decode

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestDecoder() *Decoder {
	return New(DefaultEnvelope, zerolog.Nop())
}

const validBody = `{
  "SearchParkingInfoRealtime": {
    "list_total_count": 460,
    "RESULT": {"CODE": "INFO-000", "MESSAGE": "정상 처리되었습니다"},
    "row": [
      {"PARKING_CODE": "1037932", "PARKING_NAME": "구로디지털단지역 환승주차장(시)",
       "LAT": "37.48543179", "LNG": "126.90124331", "CAPACITY": 10, "CUR_PARKING": 4},
      {"PARKING_CODE": "172198", "PARKING_NAME": "구의1동 공영주차장(구)",
       "LAT": 37.53828214, "LNG": 127.08789174, "CAPACITY": "20", "CUR_PARKING": "25"}
    ]
  }
}`

func TestDecode_ValidRows(t *testing.T) {
	got, err := newTestDecoder().Decode(validBody)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(Decode()) = %d, want 2", len(got))
	}

	first := got[0]
	if first.Code != "1037932" || first.Name != "구로디지털단지역 환승주차장(시)" {
		t.Errorf("first = %+v", first)
	}
	if first.Latitude != 37.48543179 || first.Longitude != 126.90124331 {
		t.Errorf("quoted coordinates = (%v, %v)", first.Latitude, first.Longitude)
	}
	if first.Capacity != 10 || first.CurrentOccupancy != 4 {
		t.Errorf("counts = (%d, %d)", first.Capacity, first.CurrentOccupancy)
	}

	second := got[1]
	if second.Latitude != 37.53828214 || second.Longitude != 127.08789174 {
		t.Errorf("numeric coordinates = (%v, %v)", second.Latitude, second.Longitude)
	}
	if second.Capacity != 20 || second.CurrentOccupancy != 25 {
		t.Errorf("quoted counts = (%d, %d)", second.Capacity, second.CurrentOccupancy)
	}
}

func TestDecodePage_Metadata(t *testing.T) {
	page, err := newTestDecoder().DecodePage(validBody)
	if err != nil {
		t.Fatalf("DecodePage() error = %v", err)
	}
	if page.TotalCount != 460 {
		t.Errorf("TotalCount = %d, want 460", page.TotalCount)
	}
	if page.Result == nil || page.Result.Code != "INFO-000" {
		t.Errorf("Result = %+v", page.Result)
	}
	if page.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", page.Skipped)
	}
}

func TestDecode_DocumentErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantReason Reason
		wantDetail string
	}{
		{"empty body", "", ReasonMalformedJSON, ""},
		{"truncated", `{"SearchParkingInfoRealtime": {`, ReasonMalformedJSON, ""},
		{"html error page", "<html>502</html>", ReasonMalformedJSON, ""},
		{"top-level array", `[]`, ReasonMissingEnvelope, ""},
		{"top-level null", `null`, ReasonMissingEnvelope, ""},
		{"envelope absent", `{"Other": {"row": []}}`, ReasonMissingEnvelope, ""},
		{"envelope null", `{"SearchParkingInfoRealtime": null}`, ReasonMissingEnvelope, ""},
		{"envelope string", `{"SearchParkingInfoRealtime": "x"}`, ReasonMissingEnvelope, ""},
		{
			"service result instead of envelope",
			`{"RESULT": {"CODE": "INFO-200", "MESSAGE": "해당하는 데이터가 없습니다."}}`,
			ReasonMissingEnvelope,
			"INFO-200",
		},
		{"rows absent", `{"SearchParkingInfoRealtime": {"list_total_count": 0}}`, ReasonMissingRows, ""},
		{"rows null", `{"SearchParkingInfoRealtime": {"row": null}}`, ReasonMissingRows, ""},
		{"rows object", `{"SearchParkingInfoRealtime": {"row": {}}}`, ReasonMissingRows, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newTestDecoder().Decode(tt.body)
			if got != nil {
				t.Errorf("Decode() = %v, want nil", got)
			}

			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("Decode() error = %v, want *DecodeError", err)
			}
			if decErr.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", decErr.Reason, tt.wantReason)
			}
			if tt.wantDetail != "" && !strings.Contains(decErr.Detail, tt.wantDetail) {
				t.Errorf("Detail = %q, want it to contain %q", decErr.Detail, tt.wantDetail)
			}
		})
	}
}

func TestDecode_EmptyRows(t *testing.T) {
	got, err := newTestDecoder().Decode(`{"SearchParkingInfoRealtime": {"row": []}}`)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Decode() = %v, want empty non-nil slice", got)
	}
}

func TestDecode_SkipsRowMissingCode(t *testing.T) {
	body := `{"SearchParkingInfoRealtime": {"row": [
		{"PARKING_CODE": "A", "LAT": "1", "LNG": "2", "CAPACITY": 3, "CUR_PARKING": 1},
		{"PARKING_NAME": "no code", "LAT": "1", "LNG": "2", "CAPACITY": 3, "CUR_PARKING": 1},
		{"PARKING_CODE": "C", "LAT": "1", "LNG": "2", "CAPACITY": 3, "CUR_PARKING": 1}
	]}}`

	page, err := newTestDecoder().DecodePage(body)
	if err != nil {
		t.Fatalf("DecodePage() error = %v", err)
	}
	if len(page.Facilities) != 2 || page.Facilities[0].Code != "A" || page.Facilities[1].Code != "C" {
		t.Errorf("Facilities = %+v, want codes [A C]", page.Facilities)
	}
	if page.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", page.Skipped)
	}
}

func TestDecode_RowTolerance(t *testing.T) {
	tests := []struct {
		name string
		row  string
		keep bool
	}{
		{"complete", `{"PARKING_CODE":"A","LAT":"1.5","LNG":"2.5","CAPACITY":3,"CUR_PARKING":1}`, true},
		{"numeric code", `{"PARKING_CODE":172198,"LAT":1,"LNG":2,"CAPACITY":3,"CUR_PARKING":1}`, true},
		{"name missing", `{"PARKING_CODE":"A","LAT":1,"LNG":2,"CAPACITY":3,"CUR_PARKING":1}`, true},
		{"integral float count", `{"PARKING_CODE":"A","LAT":1,"LNG":2,"CAPACITY":3.0,"CUR_PARKING":"1"}`, true},
		{"occupancy above capacity", `{"PARKING_CODE":"A","LAT":1,"LNG":2,"CAPACITY":3,"CUR_PARKING":9}`, true},
		{"empty code", `{"PARKING_CODE":"","LAT":1,"LNG":2,"CAPACITY":3,"CUR_PARKING":1}`, false},
		{"null code", `{"PARKING_CODE":null,"LAT":1,"LNG":2,"CAPACITY":3,"CUR_PARKING":1}`, false},
		{"lat missing", `{"PARKING_CODE":"A","LNG":2,"CAPACITY":3,"CUR_PARKING":1}`, false},
		{"lat unparsable", `{"PARKING_CODE":"A","LAT":"north","LNG":2,"CAPACITY":3,"CUR_PARKING":1}`, false},
		{"lng not finite", `{"PARKING_CODE":"A","LAT":1,"LNG":"NaN","CAPACITY":3,"CUR_PARKING":1}`, false},
		{"lng boolean", `{"PARKING_CODE":"A","LAT":1,"LNG":true,"CAPACITY":3,"CUR_PARKING":1}`, false},
		{"capacity missing", `{"PARKING_CODE":"A","LAT":1,"LNG":2,"CUR_PARKING":1}`, false},
		{"capacity negative", `{"PARKING_CODE":"A","LAT":1,"LNG":2,"CAPACITY":-1,"CUR_PARKING":1}`, false},
		{"capacity at int32 max", `{"PARKING_CODE":"A","LAT":1,"LNG":2,"CAPACITY":"2147483647","CUR_PARKING":1}`, true},
		{"capacity beyond int32", `{"PARKING_CODE":"A","LAT":1,"LNG":2,"CAPACITY":"99999999999","CUR_PARKING":1}`, false},
		{"capacity beyond int32 as float", `{"PARKING_CODE":"A","LAT":1,"LNG":2,"CAPACITY":"99999999999.0","CUR_PARKING":1}`, false},
		{"current beyond int32 unquoted", `{"PARKING_CODE":"A","LAT":1,"LNG":2,"CAPACITY":3,"CUR_PARKING":99999999999}`, false},
		{"current unparsable", `{"PARKING_CODE":"A","LAT":1,"LNG":2,"CAPACITY":3,"CUR_PARKING":"many"}`, false},
		{"row is a string", `"A"`, false},
		{"row is null", `null`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"SearchParkingInfoRealtime": {"row": [` + tt.row + `]}}`
			page, err := newTestDecoder().DecodePage(body)
			if err != nil {
				t.Fatalf("DecodePage() error = %v", err)
			}
			kept := len(page.Facilities) == 1
			if kept != tt.keep {
				t.Errorf("kept = %v, want %v (skipped %d)", kept, tt.keep, page.Skipped)
			}
		})
	}
}

func TestDecode_KeepsDuplicates(t *testing.T) {
	body := `{"SearchParkingInfoRealtime": {"row": [
		{"PARKING_CODE": "A", "LAT": 1, "LNG": 2, "CAPACITY": 3, "CUR_PARKING": 1},
		{"PARKING_CODE": "A", "LAT": 1, "LNG": 2, "CAPACITY": 9, "CUR_PARKING": 9}
	]}}`

	got, err := newTestDecoder().Decode(body)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(Decode()) = %d, want 2 (deduplication is not the decoder's job)", len(got))
	}
}

func TestDecode_CustomEnvelope(t *testing.T) {
	d := New("GetParkInfo", zerolog.Nop())
	if d.Envelope() != "GetParkInfo" {
		t.Errorf("Envelope() = %q", d.Envelope())
	}

	_, err := d.Decode(validBody)
	var decErr *DecodeError
	if !errors.As(err, &decErr) || decErr.Reason != ReasonMissingEnvelope {
		t.Errorf("Decode() error = %v, want missing-envelope", err)
	}

	if New("", zerolog.Nop()).Envelope() != DefaultEnvelope {
		t.Error("empty envelope should select DefaultEnvelope")
	}
}

func TestDecode_LogsSkippedRows(t *testing.T) {
	buf := &bytes.Buffer{}
	d := New(DefaultEnvelope, zerolog.New(buf))

	body := `{"SearchParkingInfoRealtime": {"row": [{"PARKING_CODE": "BAD", "LAT": "x"}]}}`
	if _, err := d.Decode(body); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Skipping malformed row") || !strings.Contains(out, `"field":"LAT"`) {
		t.Errorf("log output = %q", out)
	}
}

func TestDecodeError_Error(t *testing.T) {
	cause := errors.New("boom")
	err := &DecodeError{Reason: ReasonMissingEnvelope, Detail: "INFO-200: none", Err: cause}

	if got := err.Error(); got != "decode missing-envelope: INFO-200: none: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}
