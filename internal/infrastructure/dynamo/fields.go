package dynamo

// DynamoDB attribute names of the key-value table.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldKey       = "pk"
	fieldValue     = "v"
	fieldExpiresAt = "expires_at"
)
