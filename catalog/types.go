package catalog

type Business struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency,omitempty"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

type Product struct {
	ID         int64   `json:"id"`
	BusinessID int64   `json:"business_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	CategoryID int64   `json:"category_id,omitempty"`
}

type Member struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Credentials are exchanged for a session token by Login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type session struct {
	Token string `json:"token"`
}
