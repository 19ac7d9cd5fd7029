//go:build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/echoverse/server/internal/module/intake"
	"github.com/echoverse/server/internal/module/quota"
	"github.com/echoverse/server/internal/module/usage"
	"github.com/echoverse/server/internal/module/user"
	"github.com/echoverse/server/internal/shared/config"
	"github.com/echoverse/server/internal/shared/database"
)

// RepositorySet provides the data access layer.
var RepositorySet = wire.NewSet(
	database.New,
	user.NewRepository,
	usage.NewRepository,
	wire.Bind(new(quota.Ledger), new(usage.Repository)),
	wire.Bind(new(usage.Appender), new(usage.Repository)),
)

// ServiceSet provides the domain services.
var ServiceSet = wire.NewSet(
	user.NewService,
	wire.Bind(new(quota.ProfileStore), new(*user.Service)),
	usage.NewRecorder,
	wire.Bind(new(quota.AuditRecorder), new(*usage.Recorder)),
	quota.NewGuard,
	intake.NewService,
)

// InitializeApplication builds the application graph. Run `mage wire` to
// regenerate wire_gen.go after changing providers.
func InitializeApplication(cfg *config.Config) (*Application, error) {
	wire.Build(New)
	return nil, nil
}
