package archive

import (
	"crypto/md5"
	"math/big"
	"strconv"
)

const maxEffortIDDigits = 9

// syntheticEffortID derives a stable effort id for a device-file traversal,
// which carries no native id. The derivation is a compatibility contract:
// changing it would duplicate previously imported efforts on the next import.
// The activity and segment ids are concatenated and truncated to nine digits;
// if the truncated numeral still fails to parse, an MD5 hash of the same
// concatenation is reduced into the valid id range instead.
func syntheticEffortID(activityID int64, segmentID string) int64 {
	concat := strconv.FormatInt(activityID, 10) + segmentID
	if len(concat) > maxEffortIDDigits {
		concat = concat[:maxEffortIDDigits]
	}
	if id, err := strconv.ParseInt(concat, 10, 64); err == nil {
		return id
	}
	sum := md5.Sum([]byte(concat))
	hash := new(big.Int).SetBytes(sum[:])
	return hash.Mod(hash, big.NewInt(1_000_000_000)).Int64()
}
