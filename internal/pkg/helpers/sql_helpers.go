package helpers

// OptionalID converts a form id to a nullable column value.
// Zero and negative ids mean "not set".
func OptionalID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

// IDValue reads a nullable id column, returning 0 when NULL.
func IDValue(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
