package ballot

// PlaintextBallot is a voter's unencrypted choices. Contests and
// selections left out vote 0.
type PlaintextBallot struct {
	BallotID      string             `json:"ballot_id"`
	BallotStyleID string             `json:"ballot_style_id"`
	Contests      []PlaintextContest `json:"contests"`
	// Invalid records why the ballot was diverted from encryption.
	Invalid string `json:"invalid,omitempty"`
}

type PlaintextContest struct {
	ContestID  string               `json:"contest_id"`
	Selections []PlaintextSelection `json:"selections"`
	WriteIns   []string             `json:"write_ins,omitempty"`
}

type PlaintextSelection struct {
	SelectionID string `json:"selection_id"`
	Vote        int    `json:"vote"`
}

// Votes returns the vote of every selection keyed by SelectionKey.
func (b *PlaintextBallot) Votes() map[string]int {
	votes := make(map[string]int)
	for _, c := range b.Contests {
		for _, s := range c.Selections {
			votes[SelectionKey(c.ContestID, s.SelectionID)] = s.Vote
		}
	}
	return votes
}
