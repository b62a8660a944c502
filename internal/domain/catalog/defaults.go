package catalog

import "github.com/shopspring/decimal"

var apparelSizes = []string{"S", "M", "L", "XL", "XXL"}

// DefaultItems is the merchandise list used when the site config has no catalog section
func DefaultItems() []Item {
	return []Item{
		{
			ID:       1,
			Name:     "Band T-Shirt",
			Price:    decimal.NewFromInt(25),
			ImageURL: "https://images.pexels.com/photos/8532616/pexels-photo-8532616.jpeg?auto=compress&cs=tinysrgb&w=400",
			Category: CategoryApparel,
			Sizes:    apparelSizes,
		},
		{
			ID:       2,
			Name:     "Vinyl Record",
			Price:    decimal.NewFromInt(35),
			ImageURL: "https://images.pexels.com/photos/1389429/pexels-photo-1389429.jpeg?auto=compress&cs=tinysrgb&w=400",
			Category: CategoryMusic,
		},
		{
			ID:       3,
			Name:     "Coffee Mug",
			Price:    decimal.NewFromInt(15),
			ImageURL: "https://images.pexels.com/photos/302899/pexels-photo-302899.jpeg?auto=compress&cs=tinysrgb&w=400",
			Category: CategoryAccessories,
		},
		{
			ID:       4,
			Name:     "Hoodie",
			Price:    decimal.NewFromInt(45),
			ImageURL: "https://images.pexels.com/photos/7679720/pexels-photo-7679720.jpeg?auto=compress&cs=tinysrgb&w=400",
			Category: CategoryApparel,
			Sizes:    apparelSizes,
		},
		{
			ID:       5,
			Name:     "Poster",
			Price:    decimal.NewFromInt(20),
			ImageURL: "https://images.pexels.com/photos/1616403/pexels-photo-1616403.jpeg?auto=compress&cs=tinysrgb&w=400",
			Category: CategoryAccessories,
		},
		{
			ID:       6,
			Name:     "Digital Album",
			Price:    decimal.NewFromInt(10),
			ImageURL: "https://images.pexels.com/photos/3721941/pexels-photo-3721941.jpeg?auto=compress&cs=tinysrgb&w=400",
			Category: CategoryMusic,
		},
	}
}

// Default returns the built-in catalog
func Default() *Catalog {
	c, err := New(DefaultItems())
	if err != nil {
		panic(err)
	}
	return c
}
