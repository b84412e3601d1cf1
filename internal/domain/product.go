package domain

// Product is one catalog entry. The catalog is read-only at runtime and a
// product's ID uniquely identifies it for the lifetime of the process.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"` // minor currency units
	Emoji       string `json:"emoji"`
	IsSecret    bool   `json:"is_secret"`
}
