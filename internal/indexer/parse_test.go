package indexer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestParseAddresses(t *testing.T) {
	got, err := ParseAddresses([]string{
		" 0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc ",
		"",
		"0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640",
		"0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 unique addresses, got %d", len(got))
	}
	if got[1] != common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640") {
		t.Fatalf("address mismatch: %s", got[1].Hex())
	}
}

func TestParseAddressesEmpty(t *testing.T) {
	got, err := ParseAddresses(nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty allow-list should parse to nothing: %v %v", got, err)
	}
}

func TestParseAddressesInvalid(t *testing.T) {
	if _, err := ParseAddresses([]string{"0x1234"}); err == nil {
		t.Fatalf("expected error for short address")
	}
}
