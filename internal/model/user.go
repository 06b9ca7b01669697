package model

import "time"

// Operator is the person driving the controller. There is a single operator
// account, configured through the environment.
type Operator struct {
	Name           string
	HashedPassword string
	LoggedInAt     time.Time
}
