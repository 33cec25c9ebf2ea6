package verifier

import (
	"context"
	"encoding/json"
	"github.com/stretchr/testify/require"
	"github.com/takakv/egcore/ballot"
	"github.com/takakv/egcore/decrypt"
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/encrypt"
	"github.com/takakv/egcore/group"
	"github.com/takakv/egcore/hash"
	"math/big"
	"testing"
)

type election struct {
	cfg *ballot.ElectionConfig
	kp  *elgamal.KeyPair
	enc *encrypt.Encryptor
	dec *decrypt.Decryptor
}

func newElection(t *testing.T) *election {
	kp, err := elgamal.GenerateKeyPair(group.Production())
	require.NoError(t, err)
	cfg, err := ballot.NewElectionConfig(ballot.SampleManifest(), kp.PublicKey)
	require.NoError(t, err)
	dec, err := decrypt.NewDecryptor(cfg, kp, 0)
	require.NoError(t, err)
	return &election{cfg: cfg, kp: kp, enc: encrypt.NewEncryptor(cfg), dec: dec}
}

func plaintext(id string, a []int, b []int) *ballot.PlaintextBallot {
	pb := &ballot.PlaintextBallot{BallotID: id}
	ca := ballot.PlaintextContest{ContestID: "contest-a"}
	for i, v := range a {
		ca.Selections = append(ca.Selections, ballot.PlaintextSelection{SelectionID: []string{"a1", "a2"}[i], Vote: v})
	}
	cb := ballot.PlaintextContest{ContestID: "contest-b", WriteIns: []string{"zed"}}
	for i, v := range b {
		cb.Selections = append(cb.Selections, ballot.PlaintextSelection{SelectionID: []string{"b1", "b2", "b3"}[i], Vote: v})
	}
	pb.Contests = []ballot.PlaintextContest{ca, cb}
	return pb
}

func (e *election) submit(t *testing.T, pb *ballot.PlaintextBallot, state ballot.BallotState) *ballot.EncryptedBallot {
	cb, err := e.enc.Encrypt(pb, e.cfg.ExtendedBaseHash)
	require.NoError(t, err)
	eb, err := cb.Submit(state)
	require.NoError(t, err)
	return eb
}

// clone copies the contest and selection slices so proofs can be altered
// without touching the original.
func clone(d *ballot.DecryptedTallyOrBallot) *ballot.DecryptedTallyOrBallot {
	out := &ballot.DecryptedTallyOrBallot{ID: d.ID}
	for _, c := range d.Contests {
		c.Selections = append([]ballot.DecryptedSelection(nil), c.Selections...)
		out.Contests = append(out.Contests, c)
	}
	return out
}

func checks(fs []Finding) []string {
	var out []string
	for _, f := range fs {
		out = append(out, f.Check)
	}
	return out
}

func TestScenarioTally(t *testing.T) {
	e := newElection(t)
	stats := NewStats()
	b1 := e.submit(t, plaintext("b1", []int{1, 0}, []int{1, 1, 0}), ballot.Cast)
	b2 := e.submit(t, plaintext("b2", []int{1, 0}, []int{1, 1, 0}), ballot.Cast)

	bv := NewBallotVerifier(e.cfg)
	r, err := bv.VerifyBallots(context.Background(), []*ballot.EncryptedBallot{b1, b2}, 2, stats)
	require.NoError(t, err)
	require.NoError(t, r.Err())
	require.Equal(t, 2, r.Items())

	et, err := ballot.AccumulateTally(group.Production(), "tally", e.cfg.Manifest, []*ballot.EncryptedBallot{b1, b2})
	require.NoError(t, err)
	dt, err := e.dec.DecryptTally(et)
	require.NoError(t, err)
	require.Equal(t, map[string]int{
		"contest-a/a1": 2, "contest-a/a2": 0,
		"contest-b/b1": 2, "contest-b/b2": 2, "contest-b/b3": 0,
	}, dt.Tallies())

	dv := NewDecryptionVerifier(e.cfg)
	require.True(t, dv.VerifyTally(dt, stats).OK())

	// the tally is not a ballot: its counts of 2 would break 13.A and 13.B
	fs := dv.Verify(Target{Kind: KindBallot, Decrypted: dt}, nil)
	require.Contains(t, checks(fs), "13.A")

	calls, selections := stats.Of("verifyDecryption", "selections").Count()
	require.Equal(t, 1, calls)
	require.Equal(t, 5, selections)
	require.Contains(t, stats.Summary(), "verifyEncryptedBallots")
}

func TestSpoiledBallotRoundTrip(t *testing.T) {
	e := newElection(t)
	pb := plaintext("s1", []int{0, 1}, []int{0, 0, 1})
	eb := e.submit(t, pb, ballot.Spoiled)

	d, err := e.dec.DecryptBallot(eb)
	require.NoError(t, err)
	require.Equal(t, pb.Votes(), withZeros(d.Tallies(), pb.Votes()))

	for _, c := range d.Contests {
		require.NotNil(t, c.ContestData)
		if c.ContestID == "contest-b" {
			require.Equal(t, []string{"zed"}, c.ContestData.ContestData.WriteIns)
			require.Equal(t, ballot.StatusUnderVote, c.ContestData.ContestData.Status)
		}
	}

	dv := NewDecryptionVerifier(e.cfg)
	r, err := dv.VerifySpoiledBallotTallies(context.Background(), []*ballot.DecryptedTallyOrBallot{d}, 1, nil)
	require.NoError(t, err)
	require.NoError(t, r.Err())
}

// withZeros keeps only the keys of want so absent selections compare as 0.
func withZeros(got, want map[string]int) map[string]int {
	out := make(map[string]int)
	for k := range want {
		out[k] = got[k]
	}
	return out
}

func TestScenarioOverLimit(t *testing.T) {
	e := newElection(t)

	// encrypt under a manifest that allows two votes in contest-a, with the
	// same extended base hash
	loose := ballot.SampleManifest()
	loose.Contests[0].VotesAllowed = 2
	looseCfg := *e.cfg
	looseCfg.Manifest = loose
	cb, err := encrypt.NewEncryptor(&looseCfg).Encrypt(plaintext("over", []int{1, 1}, []int{0, 0, 0}), hash.UInt256{})
	require.NoError(t, err)
	eb, err := cb.Submit(ballot.Spoiled)
	require.NoError(t, err)

	d, err := e.dec.DecryptBallot(eb)
	require.NoError(t, err)

	fs := NewDecryptionVerifier(e.cfg).Verify(Target{Kind: KindBallot, Decrypted: d}, nil)
	require.Len(t, fs, 1)
	require.Equal(t, "13.B", fs[0].Check)
	require.Equal(t, "over/contest-a", fs[0].Where)

	// the limit proof of the encrypted ballot fails against the real manifest
	bfs := NewBallotVerifier(e.cfg).Verify(eb, nil)
	require.Contains(t, checks(bfs), "6.B")
}

func TestCorruptedChallenge(t *testing.T) {
	e := newElection(t)
	ctx := group.Production()
	eb := e.submit(t, plaintext("c1", []int{1, 0}, []int{0, 1, 1}), ballot.Spoiled)
	d, err := e.dec.DecryptBallot(eb)
	require.NoError(t, err)

	bad := clone(d)
	sel := &bad.Contests[1].Selections[1]
	raw := sel.Proof.Challenge.Bytes()
	raw[len(raw)-1] ^= 0x01
	sel.Proof.Challenge, err = ctx.BinaryToElementModQ(raw)
	require.NoError(t, err)

	dv := NewDecryptionVerifier(e.cfg)
	fs := dv.Verify(Target{Kind: KindBallot, Decrypted: bad}, nil)
	require.Len(t, fs, 1)
	require.Equal(t, Finding{Check: "11.B", Where: "c1/contest-b/b2", Message: "challenge does not match"}, fs[0])

	// the original is untouched and verifies
	require.Empty(t, dv.Verify(Target{Kind: KindBallot, Decrypted: d}, nil))

	tally := dv.Verify(Target{Kind: KindTally, Decrypted: bad}, nil)
	require.Equal(t, []string{"8.B"}, checks(tally))
}

func TestMissingResponse(t *testing.T) {
	e := newElection(t)
	eb := e.submit(t, plaintext("r1", []int{1, 0}, []int{0, 0, 0}), ballot.Spoiled)
	d, err := e.dec.DecryptBallot(eb)
	require.NoError(t, err)

	bad := clone(d)
	bad.Contests[0].Selections[0].Proof.Response = nil
	fs := NewDecryptionVerifier(e.cfg).Verify(Target{Kind: KindBallot, Decrypted: bad}, nil)
	require.ElementsMatch(t, []string{"11.A", "11.B"}, checks(fs))
}

func TestManifestCoverage(t *testing.T) {
	e := newElection(t)
	eb := e.submit(t, plaintext("m1", []int{0, 0}, []int{0, 0, 0}), ballot.Spoiled)
	d, err := e.dec.DecryptBallot(eb)
	require.NoError(t, err)

	bad := clone(d)
	bad.Contests[0].Selections[1].SelectionID = "a9"
	bad.Contests[1].ContestID = "contest-z"
	fs := NewDecryptionVerifier(e.cfg).Verify(Target{Kind: KindBallot, Decrypted: bad}, nil)

	r := &Report{}
	r.Add(fs...)
	got := r.Findings()
	require.Equal(t, []Finding{
		{Check: "13.E", Where: "m1/contest-a/a2", Message: "manifest selection not in ballot"},
		{Check: "13.D", Where: "m1/contest-a/a9", Message: "selection not in manifest"},
		{Check: "13.E", Where: "m1/contest-b/b1", Message: "manifest selection not in ballot"},
		{Check: "13.E", Where: "m1/contest-b/b2", Message: "manifest selection not in ballot"},
		{Check: "13.E", Where: "m1/contest-b/b3", Message: "manifest selection not in ballot"},
		{Check: "13.C", Where: "m1/contest-z", Message: "contest not in manifest"},
	}, got)
	require.Error(t, r.Err())
}

func TestVerificationDeterminism(t *testing.T) {
	e := newElection(t)
	ctx := group.Production()
	var ballots []*ballot.DecryptedTallyOrBallot
	for i, votes := range [][]int{{1, 0}, {0, 1}, {0, 0}, {1, 0}} {
		eb := e.submit(t, plaintext(string(rune('p'+i)), votes, []int{1, 0, 0}), ballot.Spoiled)
		d, err := e.dec.DecryptBallot(eb)
		require.NoError(t, err)
		ballots = append(ballots, d)
	}
	// break two of them
	ballots[1] = clone(ballots[1])
	ballots[1].Contests[0].Selections[0].Tally = 1
	ballots[3] = clone(ballots[3])
	ballots[3].Contests[1].Selections[2].Proof.Response = ctx.OneModQ

	dv := NewDecryptionVerifier(e.cfg)
	one, err := dv.VerifySpoiledBallotTallies(context.Background(), ballots, 1, nil)
	require.NoError(t, err)
	many, err := dv.VerifySpoiledBallotTallies(context.Background(), ballots, 4, nil)
	require.NoError(t, err)
	again, err := dv.VerifySpoiledBallotTallies(context.Background(), ballots, 4, nil)
	require.NoError(t, err)

	require.False(t, one.OK())
	require.Equal(t, one.Findings(), many.Findings())
	require.Equal(t, many.Findings(), again.Findings())
	require.Equal(t, 4, many.Items())
}

func TestBallotVerifierTamper(t *testing.T) {
	e := newElection(t)
	eb := e.submit(t, plaintext("t1", []int{1, 0}, []int{1, 0, 0}), ballot.Cast)
	bv := NewBallotVerifier(e.cfg)
	require.Empty(t, bv.Verify(eb, nil))

	bad := *eb
	bad.ConfirmationCode[0] ^= 1
	require.Equal(t, []string{"7.B"}, checks(bv.Verify(&bad, nil)))

	// swap two selection ciphertexts of contest-b
	bad = *eb
	bad.Contests = append([]ballot.CiphertextContest(nil), eb.Contests...)
	sels := append([]ballot.CiphertextSelection(nil), bad.Contests[1].Selections...)
	sels[0].Ciphertext, sels[1].Ciphertext = sels[1].Ciphertext, sels[0].Ciphertext
	bad.Contests[1].Selections = sels
	got := checks(bv.Verify(&bad, nil))
	require.Contains(t, got, "5.B")
	require.Contains(t, got, "7.A")
	require.NotContains(t, got, "6.A")
	require.NotContains(t, got, "7.B")
}

// decodeEdited round-trips b through JSON, letting edit change the decoded
// document first.
func decodeEdited(t *testing.T, b *ballot.EncryptedBallot, edit func(doc map[string]any)) *ballot.EncryptedBallot {
	raw, err := json.Marshal(b)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	edit(doc)
	raw, err = json.Marshal(doc)
	require.NoError(t, err)
	var out ballot.EncryptedBallot
	require.NoError(t, json.Unmarshal(raw, &out))
	return &out
}

func contestDoc(doc map[string]any, i int) map[string]any {
	return doc["contests"].([]any)[i].(map[string]any)
}

func TestBallotVerifierMalformed(t *testing.T) {
	e := newElection(t)
	eb := e.submit(t, plaintext("m1", []int{1, 0}, []int{1, 0, 0}), ballot.Cast)
	bv := NewBallotVerifier(e.cfg)

	noCiphertext := decodeEdited(t, eb, func(doc map[string]any) {
		sel := contestDoc(doc, 0)["selections"].([]any)[0].(map[string]any)
		sel["ciphertext"] = map[string]any{}
	})
	var fs []Finding
	require.NotPanics(t, func() { fs = bv.Verify(noCiphertext, nil) })
	got := checks(fs)
	require.Contains(t, got, "5.A")
	require.Contains(t, got, "7.A")

	noC0 := decodeEdited(t, eb, func(doc map[string]any) {
		delete(contestDoc(doc, 1)["contest_data"].(map[string]any), "c0")
	})
	require.NotPanics(t, func() { fs = bv.Verify(noC0, nil) })
	require.Equal(t, []string{"7.A"}, checks(fs))

	// one malformed ballot does not stop the others
	r, err := bv.VerifyBallots(context.Background(), []*ballot.EncryptedBallot{noCiphertext, eb, noC0}, 2, nil)
	require.NoError(t, err)
	require.Equal(t, 3, r.Items())
	require.False(t, r.OK())

	dv := NewDecryptionVerifier(e.cfg)
	et, err := ballot.AccumulateTally(group.Production(), "tally", e.cfg.Manifest, []*ballot.EncryptedBallot{eb})
	require.NoError(t, err)
	dt, err := e.dec.DecryptTally(et)
	require.NoError(t, err)
	require.NotPanics(t, func() { fs = dv.VerifyAggregation([]*ballot.EncryptedBallot{noCiphertext}, dt) })
	require.Equal(t, []string{"9.A"}, checks(fs))
}

func TestBallotVerifierNonResidue(t *testing.T) {
	e := newElection(t)
	eb := e.submit(t, plaintext("r1", []int{0, 1}, []int{0, 0, 1}), ballot.Cast)
	ctx := group.Production()
	// p - 1 has order 2, so it is not in the order-q subgroup
	minusOne, err := ctx.BigToElementModP(new(big.Int).Sub(ctx.P(), big.NewInt(1)))
	require.NoError(t, err)

	bad := *eb
	bad.Contests = append([]ballot.CiphertextContest(nil), eb.Contests...)
	sels := append([]ballot.CiphertextSelection(nil), bad.Contests[0].Selections...)
	sels[0].Ciphertext.Pad = minusOne
	bad.Contests[0].Selections = sels

	fs := NewBallotVerifier(e.cfg).Verify(&bad, nil)
	var messages []string
	for _, f := range fs {
		if f.Check == "5.A" {
			messages = append(messages, f.Message)
		}
	}
	require.Contains(t, messages, "selection ciphertext is not in the group")
}

func TestAggregation(t *testing.T) {
	e := newElection(t)
	b1 := e.submit(t, plaintext("b1", []int{1, 0}, []int{1, 1, 0}), ballot.Cast)
	b2 := e.submit(t, plaintext("b2", []int{0, 1}, []int{0, 1, 0}), ballot.Cast)
	s1 := e.submit(t, plaintext("s1", []int{1, 0}, []int{0, 0, 1}), ballot.Spoiled)
	all := []*ballot.EncryptedBallot{b1, b2, s1}

	et, err := ballot.AccumulateTally(group.Production(), "tally", e.cfg.Manifest, all)
	require.NoError(t, err)
	require.Equal(t, []string{"b1", "b2"}, et.CastBallotIDs)
	dt, err := e.dec.DecryptTally(et)
	require.NoError(t, err)
	ds, err := e.dec.DecryptBallot(s1)
	require.NoError(t, err)

	dv := NewDecryptionVerifier(e.cfg)
	require.Empty(t, dv.VerifyAggregation(all, dt))
	require.Empty(t, dv.VerifySpoiledCiphertexts(all, []*ballot.DecryptedTallyOrBallot{ds}))

	// dropping a cast ballot changes the product of the cast ciphertexts
	fs := dv.VerifyAggregation([]*ballot.EncryptedBallot{b1, s1}, dt)
	require.NotEmpty(t, fs)
	require.Equal(t, []string{"9.A"}, unique(checks(fs)))

	ds.ID = "b1"
	fs = dv.VerifySpoiledCiphertexts(all, []*ballot.DecryptedTallyOrBallot{ds})
	require.Equal(t, []string{"12.A"}, checks(fs))

	r := dv.VerifyTally(dt, nil)
	r.Attach(dv.VerifyAggregation([]*ballot.EncryptedBallot{b1, s1}, dt)...)
	require.Equal(t, 1, r.Items())
	require.False(t, r.OK())
	require.Contains(t, checks(r.Findings()), "9.A")
}

func unique(ss []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range ss {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
