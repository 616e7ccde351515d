package commitment

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func testRecipient(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func scheduleOf(n int) []Entitlement {
	out := make([]Entitlement, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, Entitlement{
			Index:     uint64(i),
			Recipient: testRecipient(byte(i)),
			AssetID:   big.NewInt(int64(i)),
			Amount:    big.NewInt(120),
			Quantity:  big.NewInt(1),
		})
	}
	return out
}

func TestEncodeLayout(t *testing.T) {
	rec := Entitlement{
		Index:     7,
		Recipient: testRecipient(0xAB),
		AssetID:   big.NewInt(3),
		Amount:    big.NewInt(120),
		Quantity:  big.NewInt(2),
	}
	encoded, err := rec.Encode()
	require.NoError(t, err)
	require.Len(t, encoded, leafSize)
	require.Equal(t, byte(7), encoded[31])
	require.Equal(t, bytes.Repeat([]byte{0xAB}, 20), encoded[32:52])
	require.Equal(t, byte(3), encoded[83])
	require.Equal(t, byte(120), encoded[115])
	require.Equal(t, byte(2), encoded[147])

	leaf, err := LeafHash(rec)
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256Hash(encoded), leaf)
}

func TestEncodeRejectsInvalidFields(t *testing.T) {
	base := scheduleOf(1)[0]

	nilAmount := base.Clone()
	nilAmount.Amount = nil
	_, err := nilAmount.Encode()
	require.ErrorIs(t, err, ErrNilField)

	negative := base.Clone()
	negative.AssetID = big.NewInt(-1)
	_, err = negative.Encode()
	require.ErrorIs(t, err, ErrNegativeField)

	wide := base.Clone()
	wide.Quantity = new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = wide.Encode()
	require.ErrorIs(t, err, ErrFieldOverflow)
}

func TestBuildRootRejectsEmptySet(t *testing.T) {
	_, err := BuildRoot(nil)
	require.ErrorIs(t, err, ErrEmptyTree)
	_, err = FromLeaves([]common.Hash{})
	require.ErrorIs(t, err, ErrEmptyTree)
}

func TestBuildRootRejectsDuplicateIndex(t *testing.T) {
	records := scheduleOf(2)
	records[1].Index = records[0].Index
	_, err := New(records)
	require.ErrorIs(t, err, ErrDuplicateIndex)
}

func TestSingleRecordTree(t *testing.T) {
	records := scheduleOf(1)
	tree, err := New(records)
	require.NoError(t, err)

	leaf, err := LeafHash(records[0])
	require.NoError(t, err)
	require.Equal(t, leaf, tree.Root())
	require.Equal(t, 0, tree.Depth())

	proof, err := tree.ProofFor(records[0])
	require.NoError(t, err)
	require.Empty(t, proof)
	require.True(t, Verify(proof, records[0], tree.Root()))
}

func TestTwoRecordRootIsSortedPair(t *testing.T) {
	records := scheduleOf(2)
	a, err := LeafHash(records[0])
	require.NoError(t, err)
	b, err := LeafHash(records[1])
	require.NoError(t, err)

	lo, hi := a, b
	if bytes.Compare(lo[:], hi[:]) > 0 {
		lo, hi = hi, lo
	}
	root, err := BuildRoot(records)
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256Hash(lo[:], hi[:]), root)
}

func TestEveryProofVerifies(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 7, 8, 13} {
		records := scheduleOf(n)
		tree, err := New(records)
		require.NoError(t, err)
		require.Equal(t, n, tree.Len())
		for _, rec := range records {
			proof, err := tree.ProofFor(rec)
			require.NoError(t, err)
			require.Truef(t, Verify(proof, rec, tree.Root()), "n=%d index=%d", n, rec.Index)
		}
	}
}

func TestMutatedRecordFailsVerification(t *testing.T) {
	records := scheduleOf(4)
	tree, err := New(records)
	require.NoError(t, err)
	rec := records[0]
	proof, err := tree.ProofFor(rec)
	require.NoError(t, err)

	mutations := map[string]func(*Entitlement){
		"index":     func(e *Entitlement) { e.Index++ },
		"recipient": func(e *Entitlement) { e.Recipient[0] ^= 0xFF },
		"assetId":   func(e *Entitlement) { e.AssetID = big.NewInt(99) },
		"amount":    func(e *Entitlement) { e.Amount = big.NewInt(121) },
		"quantity":  func(e *Entitlement) { e.Quantity = big.NewInt(5) },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			mutated := rec.Clone()
			mutate(&mutated)
			require.False(t, Verify(proof, mutated, tree.Root()))
		})
	}
}

func TestProofForeignRecordFails(t *testing.T) {
	records := scheduleOf(4)
	tree, err := New(records)
	require.NoError(t, err)
	proof, err := tree.ProofFor(records[0])
	require.NoError(t, err)
	require.False(t, Verify(proof, records[1], tree.Root()))

	_, err = tree.ProofFor(scheduleOf(5)[4])
	require.ErrorIs(t, err, ErrUnknownLeaf)
}

func TestVerifyToleratesMalformedInput(t *testing.T) {
	records := scheduleOf(4)
	root, err := BuildRoot(records)
	require.NoError(t, err)

	bad := records[0].Clone()
	bad.Amount = nil
	require.False(t, Verify(nil, bad, root))
	require.False(t, Verify(make([]common.Hash, 64), records[0], root))
	require.False(t, Verify(nil, records[0], common.Hash{}))
}

func TestHexProofRoundTrip(t *testing.T) {
	records := scheduleOf(8)
	tree, err := New(records)
	require.NoError(t, err)
	proof, err := tree.ProofFor(records[3])
	require.NoError(t, err)

	parsed, err := ParseProof(FormatProof(proof))
	require.NoError(t, err)
	require.Equal(t, proof, parsed)

	_, err = ParseProof([]string{"0x1234"})
	require.Error(t, err)
	_, err = ParseHash("0x" + string(bytes.Repeat([]byte("zz"), 32)))
	require.Error(t, err)
}
