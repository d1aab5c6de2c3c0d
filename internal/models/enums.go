package models

// PaymentMethod - How the customer paid at the counter
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentCard  PaymentMethod = "card"
	PaymentUPI   PaymentMethod = "upi"
	PaymentOther PaymentMethod = "other"
)

// MovementType - Direction of a stock change
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

// ReferenceType - What caused a stock movement
type ReferenceType string

const (
	ReferencePurchase   ReferenceType = "purchase"
	ReferenceSale       ReferenceType = "sale"
	ReferenceAdjustment ReferenceType = "adjustment"
	ReferenceReturn     ReferenceType = "return"
)

// User roles
const (
	RoleAdmin      = "admin"
	RolePharmacist = "pharmacist"
)
