package indexer

import (
	"reflect"
	"testing"
)

func TestCatchUp(t *testing.T) {
	got := catchUp(100, 105, 2)
	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestCatchUpUneven(t *testing.T) {
	got := catchUp(10, 14, 3)
	want := []BlockRange{{From: 10, To: 12}, {From: 13, To: 14}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
	if got[0].Len() != 3 || got[1].Len() != 2 {
		t.Fatalf("unexpected lengths: %d %d", got[0].Len(), got[1].Len())
	}
}

func TestCatchUpSingleBlock(t *testing.T) {
	got := catchUp(5, 5, 10)
	want := []BlockRange{{From: 5, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestCatchUpHeadBehind(t *testing.T) {
	if got := catchUp(10, 9, 5); got != nil {
		t.Fatalf("expected no ranges, got %+v", got)
	}
	if got := catchUp(1, 3, 0); len(got) != 3 {
		t.Fatalf("zero size should fall back to single blocks, got %+v", got)
	}
}
