package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/lendery/backend/internal/app/api/server"
	"github.com/lendery/backend/internal/app/service/account"
	"github.com/lendery/backend/internal/app/service/listing"
	"github.com/lendery/backend/internal/app/service/notify"
	"github.com/lendery/backend/internal/app/service/reconcile"
	"github.com/lendery/backend/internal/platform/db"
	"github.com/lendery/backend/internal/platform/provider"
	"github.com/lendery/backend/pkg/config"
	"github.com/lendery/backend/pkg/logger"
	"github.com/lendery/backend/pkg/metrics"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	provider.Module,
	metrics.Module,
	server.Module,
	notify.Module,
	reconcile.Module,
	account.Module,
	listing.Module,
)
