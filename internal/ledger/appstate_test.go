package ledger

import (
	"encoding/base64"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/crypto"
)

func uintEntry(key string, value uint64) models.TealKeyValue {
	return models.TealKeyValue{
		Key:   base64.StdEncoding.EncodeToString([]byte(key)),
		Value: models.TealValue{Type: tealTypeUint, Uint: value},
	}
}

func bytesEntry(key string, value []byte) models.TealKeyValue {
	return models.TealKeyValue{
		Key:   base64.StdEncoding.EncodeToString([]byte(key)),
		Value: models.TealValue{Type: tealTypeBytes, Bytes: base64.StdEncoding.EncodeToString(value)},
	}
}

func TestHasOptedIn(t *testing.T) {
	account := models.Account{
		AppsLocalState: []models.ApplicationLocalState{
			{Id: 5},
			{Id: 99},
		},
	}

	if !HasOptedIn(account, 5) {
		t.Error("expected opt-in for app 5")
	}
	if !HasOptedIn(account, 99) {
		t.Error("expected opt-in for app 99")
	}
	if HasOptedIn(account, 7) {
		t.Error("unexpected opt-in for app 7")
	}
	if HasOptedIn(models.Account{}, 5) {
		t.Error("unexpected opt-in for empty account")
	}
}

func TestProposalFieldKey(t *testing.T) {
	if got := ProposalFieldKey(1, "creator"); got != "proposal_1_creator" {
		t.Errorf("key = %q", got)
	}
	if got := ProposalFieldKey(10, "yes_votes"); got != "proposal_10_yes_votes" {
		t.Errorf("key = %q", got)
	}
}

// Keys for proposal 1 must never satisfy lookups for proposal 10. The
// substring scan this replaces had exactly that collision.
func TestDecodeStateExactKeyLookup(t *testing.T) {
	creator := crypto.GenerateAccount().Address

	entries := []models.TealKeyValue{
		uintEntry("proposal_count", 1),
		bytesEntry("proposal_1_creator", creator[:]),
		uintEntry("proposal_1_yes_votes", 12),
		uintEntry("proposal_1_status", 1),
	}

	state, err := DecodeState(entries)
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}

	if got := StateUint(state, ProposalFieldKey(1, "yes_votes")); got != 12 {
		t.Errorf("proposal 1 yes_votes = %d, want 12", got)
	}
	if got := StateAddress(state, ProposalFieldKey(1, "creator")); got != creator.String() {
		t.Errorf("proposal 1 creator = %q, want %q", got, creator)
	}

	if got := StateUint(state, ProposalFieldKey(10, "yes_votes")); got != 0 {
		t.Errorf("proposal 10 yes_votes = %d, want 0 (no record)", got)
	}
	if got := StateAddress(state, ProposalFieldKey(10, "creator")); got != "" {
		t.Errorf("proposal 10 creator = %q, want empty", got)
	}
}

func TestDecodeStateRejectsBadKey(t *testing.T) {
	entries := []models.TealKeyValue{{Key: "not base64!!"}}
	if _, err := DecodeState(entries); err == nil {
		t.Fatal("expected malformed key to be rejected")
	}
}

func TestStateUintIgnoresWrongType(t *testing.T) {
	state, err := DecodeState([]models.TealKeyValue{
		bytesEntry("proposal_1_status", []byte("active")),
	})
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if got := StateUint(state, "proposal_1_status"); got != 0 {
		t.Errorf("bytes value read as uint %d, want 0", got)
	}
}

func TestStateAddressRejectsWrongLength(t *testing.T) {
	state, err := DecodeState([]models.TealKeyValue{
		bytesEntry("proposal_1_creator", []byte("too short")),
	})
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if got := StateAddress(state, "proposal_1_creator"); got != "" {
		t.Errorf("short key rendered as address %q, want empty", got)
	}
}
