package model

// Team groups two cars under one pit box (spec.md section 3: "one per
// team" pit box, and section 2 data-flow: "the strategist reads car
// records ... writes a pit-request flag").
type Team struct {
	Name string
	Cars [2]*Car
}
