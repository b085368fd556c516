package domain

type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

func (c Condition) Valid() bool {
	for _, info := range Conditions {
		if info.ID == c {
			return true
		}
	}
	return false
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ConditionInfo struct {
	ID          Condition `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// Categories is the suggested list. Product.Category stays an open string.
var Categories = []Category{
	{ID: "electronics", Name: "Electronics", Description: "Phones, laptops, gadgets, and electronic devices"},
	{ID: "furniture", Name: "Furniture", Description: "Tables, chairs, sofas, and home furniture"},
	{ID: "clothing", Name: "Clothing & Fashion", Description: "Clothes, shoes, accessories, and fashion items"},
	{ID: "books", Name: "Books & Media", Description: "Books, magazines, DVDs, and educational materials"},
	{ID: "sports", Name: "Sports & Outdoors", Description: "Sports equipment, outdoor gear, and fitness items"},
	{ID: "home", Name: "Home & Garden", Description: "Home decor, kitchen items, and garden supplies"},
	{ID: "toys", Name: "Toys & Games", Description: "Children toys, board games, and entertainment"},
	{ID: "automotive", Name: "Automotive", Description: "Car parts, accessories, and automotive supplies"},
	{ID: "art", Name: "Art & Crafts", Description: "Artwork, craft supplies, and creative materials"},
	{ID: "music", Name: "Musical Instruments", Description: "Guitars, keyboards, and musical equipment"},
	{ID: "jewelry", Name: "Jewelry & Watches", Description: "Jewelry, watches, and accessories"},
	{ID: "other", Name: "Other", Description: "Items that don't fit in other categories"},
}

var Conditions = []ConditionInfo{
	{ID: ConditionExcellent, Name: "Excellent", Description: "Like new, minimal signs of use"},
	{ID: ConditionGood, Name: "Good", Description: "Well maintained, minor wear"},
	{ID: ConditionFair, Name: "Fair", Description: "Shows wear, fully functional"},
	{ID: ConditionPoor, Name: "Poor", Description: "Heavy wear, may need repair"},
}
