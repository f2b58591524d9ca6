// Package backendtest is an in-process stand-in for the Lish ordering backend,
// used by tests and the demo server. State lives in memory; auth tokens are
// real HS256 JWTs so the client's claims parsing works against it.
package backendtest

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fjod/lish_client/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

type user struct {
	ID       int64
	FullName string
	Email    string
	Phone    string
	Password string
}

type cartLine struct {
	LineID    int64
	ProductID int64
	Quantity  int
}

type Server struct {
	secret []byte
	router chi.Router

	mu         sync.Mutex
	users      map[string]*user // keyed by email
	otps       map[string]string
	products   []domain.Product
	categories []domain.Category
	carts      map[int64][]cartLine // keyed by user id
	orders     []domain.Order
	nextUserID int64
	nextLineID int64

	failStatus  int
	failCount   int
	garbageNext bool
}

func New() *Server {
	s := &Server{
		secret: []byte("backendtest-secret"),
		users:  make(map[string]*user),
		otps:   make(map[string]string),
		carts:  make(map[int64][]cartLine),
		categories: []domain.Category{
			{ID: 1, Name: "Rice"},
			{ID: 2, Name: "Noodles"},
			{ID: 3, Name: "Drinks"},
		},
		products: []domain.Product{
			{ID: 1, CategoryID: 1, Name: "Com tam suon", Price: 45000, Thumbnail: "comtam.jpg"},
			{ID: 2, CategoryID: 2, Name: "Pho bo", Price: 55000, Thumbnail: "phobo.jpg"},
			{ID: 3, CategoryID: 2, Name: "Bun cha", Price: 50000, Thumbnail: "buncha.jpg"},
			{ID: 4, CategoryID: 3, Name: "Tra dao", Price: 25000, Thumbnail: "tradao.jpg"},
		},
		nextUserID: 1,
		nextLineID: 1,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// FailNext makes the next n requests answer with the given status.
func (s *Server) FailNext(status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
	s.failCount = n
}

// GarbageNext makes the next request answer 200 with an unparsable body.
func (s *Server) GarbageNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.garbageNext = true
}

// OTPFor exposes the last code issued for an email, since nothing is mailed.
func (s *Server) OTPFor(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.otps[email]
}

// Register creates a user directly and returns its id, for test setup.
func (s *Server) Register(fullName, email, phone, password string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{ID: s.nextUserID, FullName: fullName, Email: email, Phone: phone, Password: password}
	s.nextUserID++
	s.users[email] = u
	return u.ID
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.faults)

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/otp/request", s.handleOTPRequest)
	r.Post("/auth/otp/verify", s.handleOTPVerify)
	r.Post("/auth/password/reset", s.handlePasswordReset)

	r.Get("/products", s.handleListProducts)
	r.Get("/products/{product_id}", s.handleGetProduct)
	r.Get("/categories", s.handleListCategories)

	r.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Post("/auth/password/change", s.handlePasswordChange)
		r.Get("/cart", s.handleGetCart)
		r.Post("/cart/add", s.handleAddItem)
		r.Post("/cart/remove", s.handleRemoveItem)
		r.Put("/cart/update/{line_id}", s.handleUpdateQuantity)
		r.Delete("/cart/delete/{line_id}", s.handleDeleteLine)
		r.Delete("/cart/clear/{user_id}", s.handleClearCart)
		r.Post("/orders", s.handlePlaceOrder)
		r.Get("/orders", s.handleListOrders)
		r.Get("/orders/{order_id}", s.handleGetOrder)
	})

	s.router = r
}

// faults consumes one-shot failure injection before routing.
func (s *Server) faults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		if s.garbageNext {
			s.garbageNext = false
			s.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"line_id": not json`))
			return
		}
		if s.failCount > 0 {
			s.failCount--
			status := s.failStatus
			s.mu.Unlock()
			respondError(w, status, "injected_failure", "injected failure")
			return
		}
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if len(authHeader) <= len(prefix) || authHeader[:len(prefix)] != prefix {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		token, err := jwt.Parse(authHeader[len(prefix):], func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) issueToken(u *user) string {
	claims := jwt.MapClaims{
		"user_id": u.ID,
		"email":   u.Email,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		log.Printf("sign token failed: %v", err)
	}
	return signed
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

func urlParamInt64(r *http.Request, key string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	return v, err == nil
}
