package crypto

import "testing"

func TestParseAddress(t *testing.T) {
	lower := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	addr, err := ParseAddress(lower)
	if err != nil {
		t.Fatalf("parse lower-case: %v", err)
	}
	if addr.Hex() != "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed" {
		t.Fatalf("unexpected checksum form %s", addr.Hex())
	}
	if _, err := ParseAddress(addr.Hex()); err != nil {
		t.Fatalf("parse checksummed: %v", err)
	}
	bad := []string{
		"",
		"5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		"0x1234",
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD",
	}
	for _, value := range bad {
		if _, err := ParseAddress(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func TestModuleAddressDeterministic(t *testing.T) {
	staking := ModuleAddress("staking")
	if staking != ModuleAddress(" Staking ") {
		t.Fatalf("module address must ignore case and padding")
	}
	if staking == ModuleAddress("lending") {
		t.Fatalf("modules must not share an account")
	}
	if staking == ZeroAddress {
		t.Fatalf("module address must not be zero")
	}
}
