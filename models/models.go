package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Category{},
		&Brand{},
		&Tag{},
		&Product{},
		&ProductImage{},
		&Cart{},
		&CartItem{},
		&Order{},
		&OrderItem{},
		&Payment{},
		&Refund{},
	}
}
