package domain

type Product struct {
	ID          int64  `json:"id"`
	CategoryID  int64  `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Thumbnail   string `json:"thumbnail"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
