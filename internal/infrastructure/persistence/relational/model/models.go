package model

// All lists every model in migration order.
func All() []any {
	return []any{
		&Customer{},
		&Location{},
		&LocationAsset{},
		&FaultEvent{},
		&KVEntry{},
	}
}
