package consts

const (
	IMUserExistsKey    = "im:user:exists:"
	IMListingExistsKey = "im:listing:exists:"
	IMListingOwnerKey  = "im:listing:owner:"
	IMMediaOrphanKey   = "im:media:orphan"
	TokenBlacklistKey  = "token:blacklist:"
)
