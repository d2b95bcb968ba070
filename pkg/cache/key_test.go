package cache

import (
	"strings"
	"testing"
)

func TestKey_String(t *testing.T) {
	key := Key{URL: "http://openapi.seoul.go.kr:8088/secret-key/json/SearchParkingInfoRealtime/1/1000"}

	got := key.String()
	if !strings.HasPrefix(got, KeyPrefix) {
		t.Errorf("String() = %q, want prefix %q", got, KeyPrefix)
	}
	if len(got) != len(KeyPrefix)+64 {
		t.Errorf("len(String()) = %d, want %d", len(got), len(KeyPrefix)+64)
	}
	if strings.Contains(got, "secret-key") {
		t.Errorf("String() = %q leaks the URL", got)
	}
}

func TestKey_String_Deterministic(t *testing.T) {
	key := Key{URL: "http://example.com/k/json/Feed/1/5/%EC%A4%91%EA%B5%AC"}

	first := key.String()
	for i := 0; i < 10; i++ {
		if result := key.String(); result != first {
			t.Errorf("result[%d] = %v, want %v (not deterministic)", i, result, first)
		}
	}
}

func TestKey_String_DistinctWindows(t *testing.T) {
	a := Key{URL: "http://example.com/k/json/Feed/1/1000"}.String()
	b := Key{URL: "http://example.com/k/json/Feed/1001/2000"}.String()
	if a == b {
		t.Error("different URLs produced the same key")
	}
}
