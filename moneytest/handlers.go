package moneytest

import (
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (s *Server) login(c *gin.Context) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[strings.ToLower(in.Email)]
	if u == nil || u.password != in.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"token":        s.issue(u.email),
		"refreshToken": s.newRefreshToken(u.email),
		"user":         gin.H{"name": u.name, "email": u.email},
	})
}

func (s *Server) register(c *gin.Context) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[in.Email]; exists {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "User already exists"})
		return
	}
	s.users[in.Email] = &user{name: in.Name, email: in.Email, password: in.Password}
	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"token":        s.issue(in.Email),
		"refreshToken": s.newRefreshToken(in.Email),
		"user":         gin.H{"name": in.Name, "email": in.Email},
	})
}

func (s *Server) refreshToken(c *gin.Context) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.refresh[in.RefreshToken]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid refresh token"})
		return
	}
	s.refreshes++
	c.JSON(http.StatusOK, gin.H{"token": s.issue(email)})
}

// owner returns the authenticated user. s.mu must be held.
func (s *Server) owner(c *gin.Context) *user {
	email := c.GetString("email")
	u := s.users[email]
	if u == nil {
		u = &user{email: email}
		s.users[email] = u
	}
	return u
}

func (s *Server) list(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := slices.Clone(s.owner(c).txs)
	if txs == nil {
		txs = []record{}
	}
	s.reply(c, http.StatusOK, txs)
}

// bind decodes and checks a create or update payload.
func bind(c *gin.Context) (title string, amount decimal.Decimal, kind string, ok bool) {
	var in struct {
		Title  string          `json:"title"`
		Amount decimal.Decimal `json:"amount"`
		Kind   string          `json:"kind"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return "", amount, "", false
	}
	switch {
	case strings.TrimSpace(in.Title) == "":
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Validation failed",
			"errors":  []gin.H{{"field": "title", "message": "Title is required"}},
		})
		return "", amount, "", false
	case !in.Amount.IsPositive():
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"errors": []gin.H{{"field": "amount", "message": "Amount must be positive"}},
		})
		return "", amount, "", false
	case in.Kind != "INCOME" && in.Kind != "EXPENSE":
		c.JSON(http.StatusBadRequest, gin.H{"message": "Unknown kind " + in.Kind})
		return "", amount, "", false
	}
	return in.Title, in.Amount, in.Kind, true
}

func (s *Server) create(c *gin.Context) {
	title, amount, kind, ok := bind(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r := record{
		ID:        "tx" + strconv.Itoa(s.nextID),
		Title:     title,
		Amount:    json.Number(amount.String()),
		Type:      kind,
		CreatedAt: s.clock.Now().UTC().Truncate(time.Second),
	}
	u := s.owner(c)
	u.txs = append([]record{r}, u.txs...)
	s.reply(c, http.StatusCreated, r)
}

func (s *Server) update(c *gin.Context) {
	title, amount, kind, ok := bind(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.owner(c)
	i := slices.IndexFunc(u.txs, func(r record) bool { return r.ID == c.Param("id") })
	if i < 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Transaction not found"})
		return
	}
	now := s.clock.Now().UTC().Truncate(time.Second)
	r := &u.txs[i]
	r.Title, r.Amount, r.Type, r.UpdatedAt = title, json.Number(amount.String()), kind, &now
	s.reply(c, http.StatusOK, *r)
}

func (s *Server) delete(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.owner(c)
	n := len(u.txs)
	u.txs = slices.DeleteFunc(u.txs, func(r record) bool { return r.ID == c.Param("id") })
	if len(u.txs) == n {
		c.JSON(http.StatusNotFound, gin.H{"message": "Transaction not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
}

func (s *Server) deleteAll(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner(c).txs = nil
	c.JSON(http.StatusOK, gin.H{"message": "All transactions deleted"})
}
