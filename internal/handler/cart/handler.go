package cart

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/remedy-radar/backend/internal/middleware"
	"github.com/zhouzirui/remedy-radar/backend/internal/model/cart"
	"github.com/zhouzirui/remedy-radar/backend/pkg/utils"
)

// Handler 购物车与结算的HTTP处理器
type Handler struct{}

// New 创建购物车处理器
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes 注册购物车相关的路由，需挂在会话子路由下
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/cart", h.handleGetCart)
	r.Delete("/cart", h.handleClearCart)
	r.Post("/cart/items", h.handleAddItem)
	r.Patch("/cart/items/{itemID}", h.handleUpdateQuantity)
	r.Delete("/cart/items/{itemID}", h.handleRemoveItem)
	r.Post("/checkout", h.handleCheckout)
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())
	utils.RespondJSON(w, http.StatusOK, s.Cart.Summary())
}

// handleAddItem 加入一件商品，已存在时数量加一。
// The id requirement is an HTTP-only rule: cart.Store accepts an empty key,
// but a line nobody can address by URL could never be updated or removed.
func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())

	var item cart.Item
	if err := utils.DecodeJSON(r, &item, false); err != nil {
		utils.RespondAppError(w, err)
		return
	}
	if strings.TrimSpace(item.Key()) == "" {
		utils.RespondError(w, http.StatusBadRequest, "id or _id is required")
		return
	}
	if item.Price < 0 {
		utils.RespondError(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	s.Cart.AddItem(r.Context(), item)
	utils.RespondJSON(w, http.StatusOK, s.Cart.Summary())
}

// handleUpdateQuantity 设置数量，小于 1 时移除该商品
func (h *Handler) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())

	var payload struct {
		Quantity *int `json:"quantity"`
	}
	if err := utils.DecodeJSON(r, &payload, false); err != nil {
		utils.RespondAppError(w, err)
		return
	}
	if payload.Quantity == nil {
		utils.RespondError(w, http.StatusBadRequest, "quantity is required")
		return
	}

	s.Cart.UpdateQuantity(r.Context(), chi.URLParam(r, "itemID"), *payload.Quantity)
	utils.RespondJSON(w, http.StatusOK, s.Cart.Summary())
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())
	s.Cart.RemoveItem(r.Context(), chi.URLParam(r, "itemID"))
	utils.RespondJSON(w, http.StatusOK, s.Cart.Summary())
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())
	s.Cart.ClearCart(r.Context())
	utils.RespondJSON(w, http.StatusOK, s.Cart.Summary())
}

// handleCheckout 下单。请求会阻塞到模拟处理结束，失败原因通过通知推送
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.SessionFrom(r.Context())

	var payload struct {
		Address string `json:"address"`
	}
	if err := utils.DecodeJSON(r, &payload, true); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	ok := s.Cart.Checkout(r.Context(), payload.Address)
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": ok,
		"cart":    s.Cart.Summary(),
	})
}
