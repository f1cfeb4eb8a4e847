package app

import (
	"go.uber.org/fx"

	"github.com/driftsip/orderdesk/internal/archiver"
	"github.com/driftsip/orderdesk/internal/cache"
	"github.com/driftsip/orderdesk/internal/config"
	"github.com/driftsip/orderdesk/internal/database"
	"github.com/driftsip/orderdesk/internal/logger"
	"github.com/driftsip/orderdesk/internal/messaging"
	"github.com/driftsip/orderdesk/internal/observability"
	repositoryorder "github.com/driftsip/orderdesk/internal/repository/order"
	httpserver "github.com/driftsip/orderdesk/internal/server/http"
	serviceorder "github.com/driftsip/orderdesk/internal/service/order"
	transporthttp "github.com/driftsip/orderdesk/internal/transport/http"
	"github.com/driftsip/orderdesk/internal/worker"
	workerorder "github.com/driftsip/orderdesk/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryorder.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP transport and the periodic sweeps on top of the core
// modules. The sweeps run inside the API process.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
	archiver.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP plus sweeps).
var Module = HTTP
