package ballot

// SampleManifest returns a two-contest manifest: "contest-a" allows one
// vote among two selections, "contest-b" two votes among three.
func SampleManifest() *Manifest {
	return &Manifest{
		ElectionScopeID: "sample-election",
		SpecVersion:     ProtocolVersion,
		Contests: []Contest{
			{
				ContestID:     "contest-a",
				SequenceOrder: 0,
				VotesAllowed:  1,
				Selections: []Selection{
					{SelectionID: "a1", SequenceOrder: 0, CandidateID: "alice"},
					{SelectionID: "a2", SequenceOrder: 1, CandidateID: "bob"},
				},
			},
			{
				ContestID:     "contest-b",
				SequenceOrder: 1,
				VotesAllowed:  2,
				Selections: []Selection{
					{SelectionID: "b1", SequenceOrder: 0, CandidateID: "carol"},
					{SelectionID: "b2", SequenceOrder: 1, CandidateID: "dave"},
					{SelectionID: "b3", SequenceOrder: 2, CandidateID: "erin"},
				},
			},
		},
	}
}
