package storage

import "fmt"

// Key schema:
//
//	tx:<userID>:<seq>  -> transaction.Transaction (json)
//	fill:<seq>         -> transaction.Fill (json)
//
// seq is zero-padded to 20 digits so lexicographic order is append order.
const (
	prefixTx   = "tx:"
	prefixFill = "fill:"
)

// txKey format: "tx:{userID}:{seq}"
func txKey(userID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d", prefixTx, userID, seq))
}

// txPrefix format: "tx:{userID}:"
func txPrefix(userID string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixTx, userID))
}

// fillKey format: "fill:{seq}"
func fillKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixFill, seq))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
