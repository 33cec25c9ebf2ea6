package hash

// Domain separator bytes. Each is the first item hashed after the key, so
// no transcript of one construction can be replayed as another.
const (
	SepRangeProof            byte = 0x21 // Selection and contest-limit range proofs.
	SepContestDataKey        byte = 0x22 // Hashed ElGamal session key.
	SepContestHash           byte = 0x23
	SepConfirmationCode      byte = 0x24
	SepSelectionDecryption   byte = 0x30
	SepContestDataDecryption byte = 0x31

	SepParameterBase   byte = 0x00
	SepElectionBase    byte = 0x01
	SepExtendedBase    byte = 0x12
	SepManifestContent byte = 0x02
)
