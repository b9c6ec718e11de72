package model

import "time"

// Restaurant represents a venue that accepts table reservations.  It
// corresponds to a row in the `restaurants` table.  Restaurants are
// read-only from the client's point of view; they change only when
// refetched.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name, used for ordering.
//  Description – free text shown on the detail page and searched.
//  Cuisine     – free-form tag (e.g. Italian), matched exactly.
//  Address     – street address.
//  Phone       – contact phone number.
//  ImageURL    – reference to the cover image.
//  OpeningHour – hour of day (0-23) the kitchen opens.
//  ClosingHour – hour of day (0-23) the kitchen closes.
//  OwnerID     – optional user id of the owning account.
//  CreatedAt   – creation timestamp.
type Restaurant struct {
	ID          uint64    `json:"id"`           // restaurants.id
	Name        string    `json:"name"`         // restaurants.name
	Description string    `json:"description"`  // restaurants.description
	Cuisine     string    `json:"cuisine"`      // restaurants.cuisine
	Address     string    `json:"address"`      // restaurants.address
	Phone       string    `json:"phone"`        // restaurants.phone
	ImageURL    string    `json:"image_url"`    // restaurants.image_url
	OpeningHour int       `json:"opening_hour"` // restaurants.opening_hour
	ClosingHour int       `json:"closing_hour"` // restaurants.closing_hour
	OwnerID     *string   `json:"owner_id"`     // restaurants.owner_id (nullable)
	CreatedAt   time.Time `json:"created_at"`   // restaurants.created_at
}

// RestaurantSummary is the subset of restaurant columns joined onto a
// reservation when listing a user's bookings.
type RestaurantSummary struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	ImageURL string `json:"image_url"`
}
