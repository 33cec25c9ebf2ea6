package proof

import (
	"encoding/json"
	"golang.org/x/xerrors"
)

type rangeJSON struct {
	Proofs []ChaumPedersen `json:"proofs"`
}

// UnmarshalJSON decodes a range proof. Elements outside of Z_q are already
// rejected by the element decoder; here a proof also needs at least the two
// branches of a 0..1 range and no missing values.
func (r *Range) UnmarshalJSON(b []byte) error {
	var tmp rangeJSON
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	if len(tmp.Proofs) < 2 {
		return xerrors.Errorf("range proof with %d branches: %w", len(tmp.Proofs), ErrRangeShape)
	}
	for i, p := range tmp.Proofs {
		if p.Challenge == nil || p.Response == nil {
			return xerrors.Errorf("range proof branch %d is incomplete: %w", i, ErrRangeShape)
		}
	}
	r.Proofs = tmp.Proofs
	return nil
}
