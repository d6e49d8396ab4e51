package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/Baaaki/chapterhub/internal/apperr"
	"github.com/Baaaki/chapterhub/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	provisionTimeout     = 15 * time.Second
	maxProvisionAttempts = 3
)

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// MessageTable identifies the physical message table of one room kind and
// the room table its rows belong to.
type MessageTable struct {
	Name      string
	RoomTable string
}

var (
	ChapterMessages = MessageTable{Name: "chapter_messages", RoomTable: "chapters"}
	GroupMessages   = MessageTable{Name: "group_messages", RoomTable: "secret_groups"}
)

func (t MessageTable) RoomIndex() string {
	return "idx_" + t.Name + "_room_created"
}

func (t MessageTable) SenderIndex() string {
	return "idx_" + t.Name + "_sender"
}

func (t MessageTable) validate() error {
	if !identifierPattern.MatchString(t.Name) || !identifierPattern.MatchString(t.RoomTable) {
		return apperr.Schema(fmt.Sprintf("invalid table identity %q/%q", t.Name, t.RoomTable), nil)
	}
	return nil
}

// SchemaProvisioner creates message tables and their indexes on first use.
//
// It keeps no record of what it already created: every call asks the database,
// so any number of replicas can race on an empty store. Concurrent calls inside
// one process for the same table share a single round trip.
type SchemaProvisioner struct {
	db    *gorm.DB
	calls singleflight.Group
}

func NewSchemaProvisioner(db *gorm.DB) *SchemaProvisioner {
	return &SchemaProvisioner{db: db}
}

// EnsureSchema makes sure table, its constraints and its indexes exist.
//
// The DDL runs detached from ctx so that one caller giving up does not fail the
// callers sharing the call, but each caller still returns a timeout error as
// soon as its own ctx is done.
func (p *SchemaProvisioner) EnsureSchema(ctx context.Context, table MessageTable) error {
	if err := table.validate(); err != nil {
		return err
	}

	ch := p.calls.DoChan(table.Name, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), provisionTimeout)
		defer cancel()
		return nil, p.ensure(ctx, table)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return apperr.Classify(ctx.Err(), "provision "+table.Name)
	}
}

func (p *SchemaProvisioner) ensure(ctx context.Context, table MessageTable) error {
	db := p.db.WithContext(ctx)
	migrator := db.Migrator()
	dialect := db.Dialector.Name()

	for attempt := 1; ; attempt++ {
		if migrator.HasTable(table.Name) &&
			migrator.HasIndex(table.Name, table.RoomIndex()) &&
			migrator.HasIndex(table.Name, table.SenderIndex()) {
			return nil
		}

		if attempt == 1 {
			if err := checkParents(ctx, migrator, table); err != nil {
				return err
			}
		}

		err := createTable(db, dialect, table)
		if err == nil {
			logger.Log.Info("Message table provisioned",
				zap.String("table", table.Name),
				zap.String("dialect", dialect),
			)
			return nil
		}

		// Another session created the same objects first; look again.
		if apperr.IsDuplicateObject(err) && attempt < maxProvisionAttempts {
			logger.Log.Debug("Concurrent schema creation, re-checking",
				zap.String("table", table.Name),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		logger.Log.Error("Schema provisioning failed",
			zap.String("table", table.Name),
			zap.String("dialect", dialect),
			zap.Error(err),
		)
		if classified := apperr.Classify(err, "provision "+table.Name); apperr.KindOf(classified) == apperr.KindTimeout {
			return classified
		}
		return apperr.Schema("provision "+table.Name, err)
	}
}

func checkParents(ctx context.Context, migrator gorm.Migrator, table MessageTable) error {
	for _, parent := range []string{"users", table.RoomTable} {
		if migrator.HasTable(parent) {
			continue
		}
		if ctx.Err() != nil {
			return apperr.Classify(ctx.Err(), "provision "+table.Name)
		}
		err := apperr.Schema(fmt.Sprintf("cannot provision %s: parent table %s does not exist", table.Name, parent), nil)
		logger.Log.Error("Schema provisioning failed", zap.String("table", table.Name), zap.Error(err))
		return err
	}
	return nil
}

func createTable(db *gorm.DB, dialect string, table MessageTable) error {
	statements := schemaStatements(dialect, table)
	return db.Transaction(func(tx *gorm.DB) error {
		if dialect == "postgres" {
			// CREATE ... IF NOT EXISTS can still collide in the catalog when two
			// sessions race, so first-touch callers queue on an advisory lock.
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "schema:"+table.Name).Error; err != nil {
				return err
			}
		}
		for _, stmt := range statements {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func schemaStatements(dialect string, t MessageTable) []string {
	var createTable string
	switch dialect {
	case "postgres":
		createTable = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id BIGSERIAL PRIMARY KEY,
	room_id UUID NOT NULL REFERENCES %[2]s(id) ON DELETE CASCADE,
	sender_id UUID NOT NULL REFERENCES users(id),
	content TEXT NOT NULL CONSTRAINT %[1]s_content_length CHECK (char_length(content) BETWEEN %[3]d AND %[4]d),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	edited_at TIMESTAMPTZ
)`, t.Name, t.RoomTable, minContent, maxContent)
	default:
		createTable = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id TEXT NOT NULL REFERENCES %[2]s(id) ON DELETE CASCADE,
	sender_id TEXT NOT NULL REFERENCES users(id),
	content TEXT NOT NULL CONSTRAINT %[1]s_content_length CHECK (length(content) BETWEEN %[3]d AND %[4]d),
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	edited_at DATETIME
)`, t.Name, t.RoomTable, minContent, maxContent)
	}

	return []string{
		createTable,
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (room_id, created_at DESC, id DESC)", t.RoomIndex(), t.Name),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (sender_id)", t.SenderIndex(), t.Name),
	}
}
