// Package common contains shared constants, sentinel errors and token-format
// helpers used across claimkeeper components.
package common

import "time"

// OperatorTokenHeaderName is the HTTP header carrying the operator bearer token.
const OperatorTokenHeaderName = "Authorization"

// ClaimTokenBytes is the amount of entropy in a claim token. Rendered as hex
// it yields ClaimTokenLength characters.
const ClaimTokenBytes = 32

// ClaimTokenLength is the length of a hex-encoded claim token.
const ClaimTokenLength = ClaimTokenBytes * 2

// DefaultTokenType is used when a caller does not name a token type.
const DefaultTokenType = "winner_claim"

// DefaultTokenValidity is the lifetime of a claim token when no explicit
// expiry is requested.
const DefaultTokenValidity = 30 * 24 * time.Hour

// DefaultRetentionDays is how long expired or used tokens are kept before
// cleanup purges them.
const DefaultRetentionDays = 60
