package keyschedule

import "crypto/sha256"

// layerChain is a symmetric hash chain that hands out one independent key
// per layer. Each step derives (nextChainKey, layerKey) from the current
// chain key:
//
//	chainKey || 0x01 -> layerKey
//	chainKey || 0x02 -> nextChainKey
type layerChain struct {
	chainKey [32]byte
}

func newLayerChain(root []byte) *layerChain {
	c := &layerChain{}
	copy(c.chainKey[:], root)
	return c
}

func deriveKeys(chainKey [32]byte) ([32]byte, [32]byte) {
	h1 := sha256.New()
	h1.Write(chainKey[:])
	h1.Write([]byte{0x01})
	var layerKey [32]byte
	copy(layerKey[:], h1.Sum(nil))

	h2 := sha256.New()
	h2.Write(chainKey[:])
	h2.Write([]byte{0x02})
	var nextChainKey [32]byte
	copy(nextChainKey[:], h2.Sum(nil))

	return nextChainKey, layerKey
}

// Next advances the chain and returns the key for the next layer.
func (c *layerChain) Next() [32]byte {
	next, layerKey := deriveKeys(c.chainKey)
	c.chainKey = next
	return layerKey
}

// Wipe zeroes the chain key once the schedule is built.
func (c *layerChain) Wipe() {
	c.chainKey = [32]byte{}
}
