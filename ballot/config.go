package ballot

import (
	"github.com/takakv/egcore/elgamal"
	"github.com/takakv/egcore/group"
	"github.com/takakv/egcore/hash"
	"golang.org/x/xerrors"
)

// ProtocolVersion is hashed into the parameter base hash.
const ProtocolVersion = "v2.0.0"

// ElectionConfig binds a manifest to the joint public key. The extended
// base hash HE keys every challenge of the election.
type ElectionConfig struct {
	Manifest          *Manifest          `json:"manifest"`
	JointPublicKey    *elgamal.PublicKey `json:"joint_public_key"`
	ParameterBaseHash hash.UInt256       `json:"parameter_base_hash"`
	ManifestHash      hash.UInt256       `json:"manifest_hash"`
	ElectionBaseHash  hash.UInt256       `json:"election_base_hash"`
	ExtendedBaseHash  hash.UInt256       `json:"extended_base_hash"`
}

// ParameterBaseHash computes HP = H(version; 0x00, p, q, g).
func ParameterBaseHash(ctx *group.Context) hash.UInt256 {
	var version [32]byte
	copy(version[:], ProtocolVersion)
	p := ctx.P().FillBytes(make([]byte, group.PBytes))
	q := ctx.Q().FillBytes(make([]byte, group.QBytes))
	return hash.Function(version[:], hash.SepParameterBase, p, q, ctx.G)
}

// NewElectionConfig computes the hash chain
//
//	HM = H(HP; 0x02, manifest)
//	HB = H(HP; 0x01, HM)
//	HE = H(HB; 0x12, K)
func NewElectionConfig(manifest *Manifest, pk *elgamal.PublicKey) (*ElectionConfig, error) {
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	if pk == nil || !pk.Key.IsValidResidue() {
		return nil, xerrors.New("joint public key is not a valid residue")
	}
	hp := ParameterBaseHash(pk.Context())
	hm, err := manifest.Hash(hp)
	if err != nil {
		return nil, err
	}
	hb := hash.Function(hp.Bytes(), hash.SepElectionBase, hm)
	return &ElectionConfig{
		Manifest:          manifest,
		JointPublicKey:    pk,
		ParameterBaseHash: hp,
		ManifestHash:      hm,
		ElectionBaseHash:  hb,
		ExtendedBaseHash:  hash.Function(hb.Bytes(), hash.SepExtendedBase, pk.Key),
	}, nil
}

// Check recomputes the hash chain of a config read from disk.
func (c *ElectionConfig) Check() error {
	want, err := NewElectionConfig(c.Manifest, c.JointPublicKey)
	if err != nil {
		return err
	}
	if want.ExtendedBaseHash != c.ExtendedBaseHash {
		return xerrors.Errorf("extended base hash %s does not match recomputed %s",
			c.ExtendedBaseHash, want.ExtendedBaseHash)
	}
	return nil
}
