package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/claimkeeper/internal/dbx"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/claimtokens"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/participants"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/securitylog"
)

// RepositoryManager vends repositories bound to a DBTX and owns schema
// migrations.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	ClaimTokens(db dbx.DBTX) claimtokens.Repository
	SecurityLog(db dbx.DBTX) securitylog.Repository
	Participants(db dbx.DBTX) participants.Repository
}
