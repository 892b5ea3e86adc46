package models

import "time"

// Farmer supplies lots.
type Farmer struct {
	ID          string    `json:"id" bson:"_id"`
	AuctionName string    `json:"auction_name" bson:"auction_name"`
	BillingName string    `json:"billing_name,omitempty" bson:"billing_name,omitempty"`
	Phone       string    `json:"phone,omitempty" bson:"phone,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// Customer places sales orders.
type Customer struct {
	ID            string    `json:"id" bson:"_id"`
	CompanyName   string    `json:"company_name" bson:"company_name"`
	ContactPerson string    `json:"contact_person,omitempty" bson:"contact_person,omitempty"`
	BagMarking    string    `json:"bag_marking,omitempty" bson:"bag_marking,omitempty"`
	Phone         string    `json:"phone,omitempty" bson:"phone,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

// Product is a jaggery grade or variety.
type Product struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Warehouse stores lot items.
type Warehouse struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Location  string    `json:"location,omitempty" bson:"location,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
