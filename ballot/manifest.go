// Package ballot holds the election manifest and the plaintext, encrypted,
// tallied and decrypted ballot records exchanged between the encryptor,
// the decryptor and the verifier.
package ballot

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/takakv/egcore/hash"
	"golang.org/x/xerrors"
)

// Manifest lists the contests of an election.
type Manifest struct {
	ElectionScopeID string    `json:"election_scope_id" cbor:"1,keyasint"`
	SpecVersion     string    `json:"spec_version" cbor:"2,keyasint"`
	Contests        []Contest `json:"contests" cbor:"3,keyasint"`
}

// Contest is one race on the ballot. VotesAllowed is the maximum number
// of selections a voter may mark.
type Contest struct {
	ContestID     string      `json:"contest_id" cbor:"1,keyasint"`
	SequenceOrder int         `json:"sequence_order" cbor:"2,keyasint"`
	VotesAllowed  int         `json:"votes_allowed" cbor:"3,keyasint"`
	Selections    []Selection `json:"selections" cbor:"4,keyasint"`
}

type Selection struct {
	SelectionID   string `json:"selection_id" cbor:"1,keyasint"`
	SequenceOrder int    `json:"sequence_order" cbor:"2,keyasint"`
	CandidateID   string `json:"candidate_id" cbor:"3,keyasint"`
}

// SelectionKey is the "contestId/selectionId" locator of a selection.
func SelectionKey(contestID, selectionID string) string {
	return contestID + "/" + selectionID
}

// Contest returns the contest with the given id.
func (m *Manifest) Contest(id string) (*Contest, bool) {
	for i := range m.Contests {
		if m.Contests[i].ContestID == id {
			return &m.Contests[i], true
		}
	}
	return nil, false
}

// Selection returns the selection with the given id.
func (c *Contest) Selection(id string) (*Selection, bool) {
	for i := range c.Selections {
		if c.Selections[i].SelectionID == id {
			return &c.Selections[i], true
		}
	}
	return nil, false
}

// ContestLimits maps every contest id to its vote limit.
func (m *Manifest) ContestLimits() map[string]int {
	limits := make(map[string]int, len(m.Contests))
	for _, c := range m.Contests {
		limits[c.ContestID] = c.VotesAllowed
	}
	return limits
}

// SelectionSet returns the SelectionKey of every selection in the manifest.
func (m *Manifest) SelectionSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, c := range m.Contests {
		for _, s := range c.Selections {
			set[SelectionKey(c.ContestID, s.SelectionID)] = struct{}{}
		}
	}
	return set
}

// Validate checks the structure the encryptor and verifier rely on: unique
// ids, and a limit between 1 and the number of selections.
func (m *Manifest) Validate() error {
	if len(m.Contests) == 0 {
		return xerrors.New("manifest has no contests")
	}
	contests := make(map[string]bool)
	for _, c := range m.Contests {
		if c.ContestID == "" || contests[c.ContestID] {
			return xerrors.Errorf("manifest contest id %q is empty or duplicated", c.ContestID)
		}
		contests[c.ContestID] = true
		if c.VotesAllowed < 1 || c.VotesAllowed > len(c.Selections) {
			return xerrors.Errorf("contest %s: votes allowed %d out of range", c.ContestID, c.VotesAllowed)
		}
		selections := make(map[string]bool)
		for _, s := range c.Selections {
			if s.SelectionID == "" || selections[s.SelectionID] {
				return xerrors.Errorf("contest %s: selection id %q is empty or duplicated", c.ContestID, s.SelectionID)
			}
			selections[s.SelectionID] = true
		}
	}
	return nil
}

var canonical cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	canonical = em
}

// Bytes returns the canonical CBOR encoding of the manifest. Two manifests
// with the same content always encode to the same bytes.
func (m *Manifest) Bytes() ([]byte, error) {
	b, err := canonical.Marshal(m)
	if err != nil {
		return nil, xerrors.Errorf("encode manifest: %v", err)
	}
	return b, nil
}

// Hash binds the manifest content to the parameter base hash.
func (m *Manifest) Hash(parameterBase hash.UInt256) (hash.UInt256, error) {
	b, err := m.Bytes()
	if err != nil {
		return hash.UInt256{}, err
	}
	return hash.Function(parameterBase.Bytes(), hash.SepManifestContent, b), nil
}
