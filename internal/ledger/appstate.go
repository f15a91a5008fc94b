package ledger

import (
	"encoding/base64"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// TEAL value type tags as reported by algod.
const (
	tealTypeBytes = 1
	tealTypeUint  = 2
)

// HasOptedIn reports whether the account holds local state for the given
// application. Both sides of the comparison are normalized to uint64 before
// comparing; mixed-width ids coming out of config parsing were a recurring
// bug in the previous front end.
func HasOptedIn(account models.Account, appID uint64) bool {
	for _, ls := range account.AppsLocalState {
		if ls.Id == appID {
			return true
		}
	}
	return false
}

// DecodeState turns the raw base64 key/value entries algod returns into a
// map keyed by the decoded key string. Lookups against the map are exact;
// substring scans over the raw entries invited id-prefix collisions
// (proposal_1 matching inside proposal_10).
func DecodeState(entries []models.TealKeyValue) (map[string]models.TealValue, error) {
	state := make(map[string]models.TealValue, len(entries))
	for _, kv := range entries {
		key, err := base64.StdEncoding.DecodeString(kv.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to decode state key %q: %w", kv.Key, err)
		}
		state[string(key)] = kv.Value
	}
	return state, nil
}

// ProposalFieldKey builds the exact global-state key for one field of one
// proposal record.
func ProposalFieldKey(id uint64, field string) string {
	return fmt.Sprintf("proposal_%d_%s", id, field)
}

// StateUint reads a uint64 field from decoded state, defaulting to zero
// when the key is missing or has the wrong type.
func StateUint(state map[string]models.TealValue, key string) uint64 {
	v, ok := state[key]
	if !ok || v.Type != tealTypeUint {
		return 0
	}
	return v.Uint
}

// StateBytes reads a byte-string field from decoded state, defaulting to
// nil when the key is missing or has the wrong type.
func StateBytes(state map[string]models.TealValue, key string) []byte {
	v, ok := state[key]
	if !ok || v.Type != tealTypeBytes {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(v.Bytes)
	if err != nil {
		return nil
	}
	return raw
}

// StateAddress reads a 32-byte public key field and renders it as a ledger
// address. Returns the empty string when the field is absent or malformed.
func StateAddress(state map[string]models.TealValue, key string) string {
	raw := StateBytes(state, key)
	if len(raw) != 32 {
		return ""
	}
	addr, err := types.EncodeAddress(raw)
	if err != nil {
		return ""
	}
	return addr
}
