package server

import (
	"app/internal/config"
	"app/internal/handler"
)

type Handlers struct {
	Auth       *handler.AuthHandler
	Product    *handler.ProductHandler
	Cart       *handler.CartHandler
	Order      *handler.OrderHandler
	Address    *handler.AddressHandler
	AdminOrder *handler.AdminOrderHandler
}

func (s *Server) RegisterRoutes(cfg config.Config, h Handlers) {
	h.Auth.RegisterRoutes(s.echo)
	h.Product.RegisterRoutes(s.echo)
	h.Cart.RegisterRoutes(s.echo, cfg)
	h.Order.RegisterRoutes(s.echo, cfg)
	h.Address.RegisterRoutes(s.echo, cfg)
	h.AdminOrder.RegisterRoutes(s.echo, cfg)
}
