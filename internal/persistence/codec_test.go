package persistence

import (
	"encoding/gob"
	"testing"
)

type codecSample struct {
	Form   string
	Fields []string
}

func TestValueCodecRoundTrip(t *testing.T) {
	t.Parallel()

	gob.Register(codecSample{})

	in := codecSample{Form: "filled", Fields: []string{"Name", "Email"}}
	data, err := encodeValue(in)
	if err != nil {
		t.Fatalf("encodeValue failed: %v", err)
	}

	out, err := decodeValue(data)
	if err != nil {
		t.Fatalf("decodeValue failed: %v", err)
	}
	got, ok := out.(codecSample)
	if !ok {
		t.Fatalf("decoded type %T, want codecSample", out)
	}
	if got.Form != in.Form || len(got.Fields) != 2 || got.Fields[1] != "Email" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestValueCodecNil(t *testing.T) {
	t.Parallel()

	data, err := encodeValue(nil)
	if err != nil {
		t.Fatalf("encodeValue(nil) failed: %v", err)
	}
	if data != nil {
		t.Fatalf("encodeValue(nil) = %v, want nil", data)
	}

	out, err := decodeValue(nil)
	if err != nil {
		t.Fatalf("decodeValue(nil) failed: %v", err)
	}
	if out != nil {
		t.Fatalf("decodeValue(nil) = %v, want nil", out)
	}
}
