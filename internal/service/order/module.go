package order

import (
	"go.uber.org/fx"

	repo "github.com/driftsip/orderdesk/internal/repository/order"
)

// Module provides the order service to Fx, binding the bun repository to
// the Store contract.
var Module = fx.Options(
	fx.Provide(func(r *repo.Repository) Store { return r }),
	fx.Provide(NewService),
)
