package backendtest

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fjod/lish_client/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "email and password required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Email]; exists {
		respondError(w, http.StatusConflict, "email_taken", "email already registered")
		return
	}
	u := &user{ID: s.nextUserID, FullName: req.FullName, Email: req.Email, Phone: req.Phone, Password: req.Password}
	s.nextUserID++
	s.users[req.Email] = u
	respondJSON(w, http.StatusCreated, map[string]int64{"id": u.ID})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Email]
	s.mu.Unlock()
	if !ok || u.Password != req.Password {
		respondError(w, http.StatusUnauthorized, "bad_credentials", "wrong email or password")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": s.issueToken(u),
		"user": map[string]interface{}{
			"id":        u.ID,
			"full_name": u.FullName,
			"email":     u.Email,
			"phone":     u.Phone,
		},
	})
}

func (s *Server) handleOTPRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[req.Email]; !ok {
		respondError(w, http.StatusNotFound, "not_found", "no account for this email")
		return
	}
	s.otps[req.Email] = fmt.Sprintf("%06d", rand.Intn(1000000))
	respondJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (s *Server) handleOTPVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.otps[req.Email] == "" || s.otps[req.Email] != req.Code {
		respondError(w, http.StatusBadRequest, "bad_code", "wrong or expired code")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.otps[req.Email] == "" || s.otps[req.Email] != req.Code {
		respondError(w, http.StatusBadRequest, "bad_code", "wrong or expired code")
		return
	}
	u, ok := s.users[req.Email]
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "no account for this email")
		return
	}
	u.Password = req.NewPassword
	delete(s.otps, req.Email)
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Password == req.OldPassword {
			u.Password = req.NewPassword
			respondJSON(w, http.StatusOK, map[string]string{"status": "changed"})
			return
		}
	}
	respondError(w, http.StatusBadRequest, "bad_password", "old password does not match")
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	products := make([]domain.Product, len(s.products))
	copy(products, s.products)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := urlParamInt64(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be an integer")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == productID {
			respondJSON(w, http.StatusOK, p)
			return
		}
	}
	respondError(w, http.StatusNotFound, "not_found", "product not found")
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	categories := make([]domain.Category, len(s.categories))
	copy(categories, s.categories)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, categories)
}

// lineDTO matches the shape the client expects from GET /cart.
type lineDTO struct {
	LineID    int64       `json:"line_id"`
	ProductID int64       `json:"product_id"`
	Quantity  int         `json:"quantity"`
	Product   productMeta `json:"product"`
}

type productMeta struct {
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Thumbnail string `json:"thumbnail"`
}

func (s *Server) lineToDTO(l cartLine) lineDTO {
	dto := lineDTO{LineID: l.LineID, ProductID: l.ProductID, Quantity: l.Quantity}
	for _, p := range s.products {
		if p.ID == l.ProductID {
			dto.Product = productMeta{Name: p.Name, Price: p.Price, Thumbnail: p.Thumbnail}
			break
		}
	}
	return dto
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt64(r.URL.Query(), "user_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be an integer")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	dtos := make([]lineDTO, 0, len(s.carts[userID]))
	for _, l := range s.carts[userID] {
		dtos = append(dtos, s.lineToDTO(l))
	}
	respondJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    int64 `json:"user_id"`
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[req.UserID]
	for i := range lines {
		if lines[i].ProductID == req.ProductID {
			lines[i].Quantity += req.Quantity
			respondJSON(w, http.StatusCreated, s.lineToDTO(lines[i]))
			return
		}
	}
	l := cartLine{LineID: s.nextLineID, ProductID: req.ProductID, Quantity: req.Quantity}
	s.nextLineID++
	s.carts[req.UserID] = append(lines, l)
	respondJSON(w, http.StatusCreated, s.lineToDTO(l))
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    int64 `json:"user_id"`
		ProductID int64 `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.carts[req.UserID]
	for i := range lines {
		if lines[i].ProductID == req.ProductID {
			if lines[i].Quantity <= 1 {
				s.carts[req.UserID] = append(lines[:i], lines[i+1:]...)
			} else {
				lines[i].Quantity--
			}
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
	}
	respondError(w, http.StatusNotFound, "not_found", "no such line")
}

func (s *Server) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	lineID, ok := urlParamInt64(r, "line_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_line_id", "line_id must be an integer")
		return
	}
	quantity, err := strconv.Atoi(r.URL.Query().Get("quantity"))
	if err != nil || quantity < 1 || quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for userID := range s.carts {
		for i := range s.carts[userID] {
			if s.carts[userID][i].LineID == lineID {
				s.carts[userID][i].Quantity = quantity
				respondJSON(w, http.StatusOK, s.lineToDTO(s.carts[userID][i]))
				return
			}
		}
	}
	respondError(w, http.StatusNotFound, "not_found", "no such line")
}

func (s *Server) handleDeleteLine(w http.ResponseWriter, r *http.Request) {
	lineID, ok := urlParamInt64(r, "line_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_line_id", "line_id must be an integer")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for userID := range s.carts {
		for i := range s.carts[userID] {
			if s.carts[userID][i].LineID == lineID {
				s.carts[userID] = append(s.carts[userID][:i], s.carts[userID][i+1:]...)
				respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
				return
			}
		}
	}
	respondError(w, http.StatusNotFound, "not_found", "no such line")
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlParamInt64(r, "user_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be an integer")
		return
	}

	s.mu.Lock()
	delete(s.carts, userID)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var order domain.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if len(order.Items) == 0 {
		respondError(w, http.StatusBadRequest, "empty_order", "order has no items")
		return
	}
	if order.Name == "" || order.Phone == "" || order.Address == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "name, phone and address required")
		return
	}

	order.ID = uuid.NewString()
	order.Status = "pending"
	order.CreatedAt = time.Now()

	s.mu.Lock()
	s.orders = append(s.orders, order)
	s.mu.Unlock()
	respondJSON(w, http.StatusCreated, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt64(r.URL.Query(), "user_id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be an integer")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0)
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == orderID {
			respondJSON(w, http.StatusOK, o)
			return
		}
	}
	respondError(w, http.StatusNotFound, "not_found", "order not found")
}

func queryInt64(q url.Values, key string) (int64, error) {
	return strconv.ParseInt(q.Get(key), 10, 64)
}
