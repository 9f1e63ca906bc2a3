package fasta

import (
	"strings"
	"testing"
)

func TestReadAll(t *testing.T) {
	input := `;comment line
>sp|P02769|ALBU_BOVIN Serum albumin
MKWVTFISLL
LLFSSAYSR*

>DECOY_1
pepTIDEK
>empty
`
	proteins, err := ReadAll(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}

	tests := []struct {
		id, desc, seq string
	}{
		{"sp|P02769|ALBU_BOVIN", "Serum albumin", "MKWVTFISLLLLFSSAYSR"},
		{"DECOY_1", "", "PEPTIDEK"},
		{"empty", "", ""},
	}
	if len(proteins) != len(tests) {
		t.Fatalf("got %d proteins, want %d", len(proteins), len(tests))
	}
	for i, tt := range tests {
		p := proteins[i]
		if p.Identifier != tt.id || p.Description != tt.desc || p.Sequence != tt.seq {
			t.Errorf("protein %d = %+v, want %+v", i, p, tt)
		}
	}
}

func TestReaderErrors(t *testing.T) {
	if _, err := ReadAll(strings.NewReader("PEPTIDEK\n>P1\nAAK\n")); err == nil {
		t.Error("expected error for sequence before header")
	}

	proteins, err := ReadAll(strings.NewReader(""))
	if err != nil || len(proteins) != 0 {
		t.Errorf("empty input = %v, %v", proteins, err)
	}
}

func TestReaderStreaming(t *testing.T) {
	r := NewReader(strings.NewReader(">A\nAAK\n>B\nAAR\n"))
	var ids []string
	for r.Next() {
		ids = append(ids, r.Protein().Identifier)
	}
	if r.Err() != nil {
		t.Fatal(r.Err())
	}
	if strings.Join(ids, ",") != "A,B" {
		t.Errorf("ids = %v", ids)
	}
	if r.Next() || r.Protein() != nil {
		t.Error("Next() after EOF should return false")
	}
}
