// Package model defines the data types shared across the store, the
// resolvers and the command layer.
package model

// Company is one Taiwan-listed company. Rows are seeded from the TWSE
// open-data company lists and are read-only everywhere else.
type Company struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
