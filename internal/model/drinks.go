package model

// Drink is a static drink-type definition.
type Drink struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	HydrationFactor float64 `json:"hydrationFactor"`
}

// WaterDrinkID is the drink used by quick-add actions.
const WaterDrinkID = "water"

// Drinks is the built-in catalog. Negative factors are diuretics.
var Drinks = []Drink{
	{ID: "water", Name: "Water", HydrationFactor: 1.0},
	{ID: "green_tea", Name: "Green tea", HydrationFactor: 0.9},
	{ID: "coffee", Name: "Coffee", HydrationFactor: 0.6},
	{ID: "juice", Name: "Juice", HydrationFactor: 0.95},
	{ID: "milk", Name: "Milk", HydrationFactor: 1.3},
	{ID: "soda", Name: "Soda", HydrationFactor: 0.8},
	{ID: "energy", Name: "Energy drink", HydrationFactor: 0.55},
	{ID: "beer", Name: "Beer", HydrationFactor: -0.4},
	{ID: "wine", Name: "Red wine", HydrationFactor: -0.95},
	{ID: "caipirinha", Name: "Caipirinha", HydrationFactor: -1.5},
}

// LookupDrink finds a catalog drink by id.
func LookupDrink(id string) (Drink, bool) {
	for _, d := range Drinks {
		if d.ID == id {
			return d, true
		}
	}
	return Drink{}, false
}
