package models

import "time"

// Property is a single listing
type Property struct {
	ID          int64     `json:"id" msgpack:"id"`
	Title       string    `json:"title" msgpack:"title"`
	Description string    `json:"description" msgpack:"description"`
	Price       float64   `json:"price" msgpack:"price"`
	Location    string    `json:"location" msgpack:"location"`
	CreatedAt   time.Time `json:"created_at" msgpack:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" msgpack:"updated_at"`
}

// PropertyInput carries the writable fields of a listing
type PropertyInput struct {
	Title       string  `json:"title" form:"title" validate:"required,max=200"`
	Description string  `json:"description" form:"description"`
	Price       float64 `json:"price" form:"price" validate:"gte=0,lt=10000000000"`
	Location    string  `json:"location" form:"location" validate:"required,max=200"`
}

// SampleProperties are inserted by the startup seed step when the listings table is empty.
var SampleProperties = []PropertyInput{
	{
		Title:       "Luxury Villa in Miami",
		Description: "Beautiful 4-bedroom villa with ocean view and private pool",
		Price:       1250000.00,
		Location:    "Miami, FL",
	},
	{
		Title:       "Downtown Apartment",
		Description: "Modern 2-bedroom apartment in city center with amazing views",
		Price:       450000.00,
		Location:    "New York, NY",
	},
	{
		Title:       "Country House",
		Description: "Spacious country house with large garden and peaceful surroundings",
		Price:       320000.00,
		Location:    "Austin, TX",
	},
}

// CatalogProperties is the fuller fixture set used by the seed-properties command,
// which get-or-creates each entry by title.
var CatalogProperties = append(append([]PropertyInput{}, SampleProperties...),
	PropertyInput{
		Title:       "Beachfront Condo",
		Description: "Luxurious beachfront condo with direct beach access",
		Price:       750000.00,
		Location:    "San Diego, CA",
	},
	PropertyInput{
		Title:       "Mountain Cabin",
		Description: "Cozy cabin in the mountains perfect for weekend getaways",
		Price:       280000.00,
		Location:    "Denver, CO",
	},
)
