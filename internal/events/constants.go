package events

const (
	TopicOrderCreated  = "orders.created"
	TopicOrderStatus   = "orders.status"
	TopicCouponApplied = "coupons.applied"
)
