package domain

import "time"

type OrderItem struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	Note      string `json:"note"`
}

type Order struct {
	ID            string      `json:"id"`
	UserID        int64       `json:"user_id"`
	Name          string      `json:"name"`
	Phone         string      `json:"phone"`
	Email         string      `json:"email"`
	Address       string      `json:"address"`
	Note          string      `json:"note"`
	TotalAmount   int64       `json:"total_amount"`
	PaymentMethod string      `json:"payment_method"`
	Status        string      `json:"status"`
	Items         []OrderItem `json:"order_details"`
	CreatedAt     time.Time   `json:"created_at"`
}
