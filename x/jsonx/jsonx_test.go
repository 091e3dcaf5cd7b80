package jsonx

import "testing"

type probe struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestDecodeSources(t *testing.T) {
	want := probe{Name: "tv_pwr", Count: 3}

	var fromBytes probe
	if err := Decode([]byte(`{"name":"tv_pwr","count":3}`), &fromBytes); err != nil {
		t.Fatalf("bytes: %v", err)
	}
	if fromBytes != want {
		t.Fatalf("bytes: got %+v", fromBytes)
	}

	var fromString probe
	if err := Decode(`{"name":"tv_pwr","count":3}`, &fromString); err != nil {
		t.Fatalf("string: %v", err)
	}
	if fromString != want {
		t.Fatalf("string: got %+v", fromString)
	}

	// Bus payloads arrive as already-decoded maps.
	var fromMap probe
	src := map[string]any{"name": "tv_pwr", "count": 3}
	if err := Decode(src, &fromMap); err != nil {
		t.Fatalf("map: %v", err)
	}
	if fromMap != want {
		t.Fatalf("map: got %+v", fromMap)
	}

	// Struct payloads published in-process survive the round trip too.
	var fromStruct probe
	if err := Decode(want, &fromStruct); err != nil {
		t.Fatalf("struct: %v", err)
	}
	if fromStruct != want {
		t.Fatalf("struct: got %+v", fromStruct)
	}
}

func TestDecodeMalformed(t *testing.T) {
	var p probe
	if err := Decode([]byte(`{"name":`), &p); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	if err := Decode(make(chan int), &p); err == nil {
		t.Fatal("expected error for unmarshalable source")
	}
}
