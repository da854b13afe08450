// Package cidutil names DER values by content.
package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Sum returns a CIDv1 using the "raw" multicodec and a sha2-256 multihash of
// der. Two extension values get the same CID exactly when their encodings
// are byte-identical.
func Sum(der []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(der, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
