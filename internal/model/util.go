package model

import (
	"strconv"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"
	"github.com/nrednav/cuid2"
)

func CreateID() string {
	uuid, _ := uuid.NewRandom()
	return base58.Encode(uuid[:])
}

var offlineSuffix, _ = cuid2.Init(cuid2.WithLength(5))

// OfflineTag synthesises a unique connection tag for a user with no live connection.
func OfflineTag(now time.Time) string {
	return connectionTagOffline + strconv.FormatInt(now.UnixMilli(), 36) + offlineSuffix()
}
