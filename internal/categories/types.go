package categories

import "time"

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type NewCategory struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}
