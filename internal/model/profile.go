package model

import "github.com/shopspring/decimal"

// Profile holds the onboarding answers used to suggest a daily goal.
type Profile struct {
	Gender         string  `json:"gender"`
	WeightKg       float64 `json:"weightKg"`
	HeightCm       float64 `json:"heightCm"`
	ActivityFactor float64 `json:"activityFactor"`
	ClimateFactor  float64 `json:"climateFactor"`
}

// SuggestedGoal computes a daily goal in ml from the profile, rounded to the
// nearest 50 ml. Men use a 35 ml/kg base, everyone else 31 ml/kg; height adds
// one ml/kg per metre.
func (p Profile) SuggestedGoal() int {
	base := decimal.NewFromInt(31)
	if p.Gender == "male" {
		base = decimal.NewFromInt(35)
	}
	perKg := base.Add(decimal.NewFromFloat(p.HeightCm).Div(decimal.NewFromInt(100)))
	raw := decimal.NewFromFloat(p.WeightKg).
		Mul(perKg).
		Mul(decimal.NewFromFloat(p.ActivityFactor)).
		Mul(decimal.NewFromFloat(p.ClimateFactor))

	fifty := decimal.NewFromInt(50)
	return int(RoundHalfUp(raw.Div(fifty)).Mul(fifty).IntPart())
}

// RoundHalfUp rounds to the nearest integer with halves going toward
// positive infinity, so 2.5 -> 3 and -2.5 -> -2.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Add(decimal.NewFromFloat(0.5)).Floor()
}
