package component

// Transform is a 2D position. Pure data.
type Transform struct {
	X, Y float64
}

// Velocity is units per second, applied to Transform by the movement system.
type Velocity struct {
	X, Y float64
}

// Name labels an entity for logs and scene lookups.
type Name struct {
	Value string
}
